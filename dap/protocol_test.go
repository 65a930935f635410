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
	"bytes"
	"testing"
)

func TestWriteReadRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Seq: 1, Type: "request", Command: "initialize", Arguments: []byte(`{"adapterId":"x.cdf"}`)}
	if err := WriteMessage(&buf, &req); err != nil {
		t.Fatal(err)
	}

	got, err := ReadRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if got.Command != "initialize" || string(got.Arguments) != `{"adapterId":"x.cdf"}` {
		t.Fatalf("round-tripped request = %+v", got)
	}
}

func TestReadRequestMissingContentLength(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("\r\n{}"))
	if _, err := ReadRequest(r); err == nil {
		t.Fatal("expected an error for a message with no Content-Length header")
	}
}

func TestReadRequestMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		req := Request{Seq: i, Type: "request", Command: "next"}
		if err := WriteMessage(&buf, &req); err != nil {
			t.Fatal(err)
		}
	}

	r := bufio.NewReader(&buf)
	for i := 0; i < 3; i++ {
		got, err := ReadRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		if got.Seq != i {
			t.Fatalf("message %d: Seq = %d", i, got.Seq)
		}
	}
}
