// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/codx-dev/zkdbg/cdf"
)

func writeFixtureFile(t *testing.T) string {
	t.Helper()

	witnesses, constraints, provider, err := cdf.GenerateFixture(1, cdf.FixtureOptions{Lines: 2, GatesPerLine: 2})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fixture.cdf")
	if err := cdf.EncodeToFile(path, cdf.Config{}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}
	return path
}

// scenario: after initialize, evaluate("c0") returns a JSON object with
// "id" and "polynomial" keys.
func TestAdapterInitializeAndEvaluate(t *testing.T) {
	path := writeFixtureFile(t)

	client, server := net.Pipe()
	defer client.Close()

	logger := log.New(os.Stderr, "", 0)
	session := NewSession(uuid.New(), server, logger)
	done := make(chan error, 1)
	go func() { done <- session.Serve() }()

	send := func(seq int, command string, args interface{}) {
		raw, err := json.Marshal(args)
		if err != nil {
			t.Fatal(err)
		}
		req := Request{Seq: seq, Type: "request", Command: command, Arguments: raw}
		if err := WriteMessage(client, &req); err != nil {
			t.Fatal(err)
		}
	}

	r := bufio.NewReader(client)
	readEnvelope := func() map[string]interface{} {
		var env map[string]interface{}
		if err := readFramedJSON(r, &env); err != nil {
			t.Fatal(err)
		}
		return env
	}

	send(1, "initialize", map[string]string{"adapterId": path})

	// initialize emits a Stopped event, then a response.
	ev := readEnvelope()
	if ev["type"] != "event" || ev["event"] != "stopped" {
		t.Fatalf("expected a stopped event first, got %+v", ev)
	}
	resp := readEnvelope()
	if resp["type"] != "response" || resp["success"] != true {
		t.Fatalf("initialize response = %+v", resp)
	}

	send(2, "evaluate", map[string]string{"expression": "c0"})
	resp = readEnvelope()
	if resp["type"] != "response" || resp["success"] != true {
		t.Fatalf("evaluate response = %+v", resp)
	}

	body, ok := resp["body"].(map[string]interface{})
	if !ok {
		t.Fatalf("evaluate response has no body: %+v", resp)
	}
	result, ok := body["result"].(string)
	if !ok {
		t.Fatalf("evaluate response body has no string result: %+v", body)
	}

	var constraint map[string]interface{}
	if err := json.Unmarshal([]byte(result), &constraint); err != nil {
		t.Fatalf("evaluate result is not valid JSON: %v", err)
	}
	if _, ok := constraint["id"]; !ok {
		t.Fatalf("evaluate result missing \"id\" key: %v", constraint)
	}
	poly, ok := constraint["polynomial"].(map[string]interface{})
	if !ok {
		t.Fatalf("evaluate result missing \"polynomial\" object: %v", constraint)
	}
	for _, key := range []string{"qm", "ql", "qr", "qd", "qc", "qo", "pi", "q_arith", "q_logic", "q_range", "q_group_variable", "q_fixed_add"} {
		if _, ok := poly["selectors"].(map[string]interface{})[key]; !ok {
			t.Fatalf("evaluate result polynomial.selectors missing %q: %v", key, poly)
		}
	}

	client.Close()
	<-done
}

// readFramedJSON reads one Content-Length-framed message and decodes it
// generically, since the test client doesn't know in advance whether
// the next message is an event or a response.
func readFramedJSON(r *bufio.Reader, out interface{}) error {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return err
			}
			length = n
		}
	}
	if length < 0 {
		return fmt.Errorf("dap test: message missing Content-Length")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
