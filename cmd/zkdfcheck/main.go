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

// Command zkdfcheck verifies the record-region Digest of one or more CDF
// files and reports their ContentDigest, without loading either array
// into memory beyond what Decode needs.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/codx-dev/zkdbg/cdf"
)

func main() {
	want := flag.String("digest", "", "expected digest, as 32 lowercase hex characters (lo:hi); when set, mismatches exit nonzero")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	status := 0
	for _, arg := range args {
		if err := check(arg, *want); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", arg, err)
			status = 1
		}
	}
	os.Exit(status)
}

func check(path, want string) error {
	var f *os.File
	var err error
	if path == "-" {
		f = os.Stdin
	} else {
		f, err = os.Open(path)
		if err != nil {
			return fmt.Errorf("opening: %w", err)
		}
		defer f.Close()
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	digest, err := cdf.DigestFile(f, info.Size())
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}

	dec, err := cdf.NewDecoder(f, info.Size())
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	defer dec.Close()

	names, contents := dec.SourceCache()
	content, err := cdf.ContentDigest(names, contents)
	if err != nil {
		return fmt.Errorf("content digest: %w", err)
	}

	preamble := dec.Preamble()
	fmt.Printf("%s: witnesses=%d constraints=%d digest=%016x:%016x content=%s\n",
		path, preamble.Witnesses, preamble.Constraints, digest.Lo, digest.Hi, hex.EncodeToString(content[:]))

	if want == "" {
		return nil
	}
	got := fmt.Sprintf("%016x:%016x", digest.Lo, digest.Hi)
	if got != want {
		return fmt.Errorf("digest mismatch: want %s, got %s", want, got)
	}
	return nil
}
