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

package cdf

import (
	"encoding/binary"
	"io"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
)

// Digest is a keyed 128-bit fingerprint of a CDF file's fixed-stride
// record region (preamble, witnesses, constraints), excluding the
// trailing source cache. The region includes the preamble's Config byte,
// so toggling compressed_source_cache changes Digest even when the
// witnesses and constraints are otherwise identical; ContentDigest is the
// fingerprint that's independent of that flag.
type Digest struct {
	Lo, Hi uint64
}

// DigestFile computes the Digest of the record region of src, which
// holds size bytes total.
func DigestFile(src Source, size int64) (Digest, error) {
	pbuf := make([]byte, PreambleLen)
	if _, err := src.ReadAt(pbuf, 0); err != nil {
		return Digest{}, err
	}
	preamble := decodePreamble(pbuf)

	recordLen := preamble.SourceCacheOffset()
	if recordLen > size {
		return Digest{}, newDecodeError(ErrMalformedCache,
			"record region of %d bytes exceeds file size %d", recordLen, size)
	}

	r := io.NewSectionReader(src, 0, recordLen)
	buf := make([]byte, 64*1024)
	h := siphashWriter{}
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, err
		}
	}

	lo, hi := h.sum()
	return Digest{Lo: lo, Hi: hi}, nil
}

// siphashWriter accumulates bytes across reads and hashes them as one
// message at the end; siphash has no native streaming API in the
// dchest/siphash package, so the record region (bounded by the
// preamble's own counts) is buffered in full before hashing.
type siphashWriter struct {
	buf []byte
}

func (s *siphashWriter) write(p []byte) {
	s.buf = append(s.buf, p...)
}

func (s *siphashWriter) sum() (uint64, uint64) {
	return siphash.Hash128(0, 0, s.buf)
}

// ContentDigest hashes the decoded names[] and contents[] arrays of a
// source cache into a single blake2b-256 fingerprint of a CDF's logical
// source material. Unlike Digest, ContentDigest is independent of the
// compressed_source_cache bit: two encodes that differ only in that
// flag produce the same ContentDigest, since it hashes the decoded
// strings, not the on-disk bytes.
func ContentDigest(names, contents []string) ([32]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}

	var lenBuf [8]byte
	writeLenPrefixed := func(s string) {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		io.WriteString(h, s)
	}

	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(names)))
	h.Write(lenBuf[:])
	for i, name := range names {
		writeLenPrefixed(name)
		writeLenPrefixed(contents[i])
	}

	var sum [32]byte
	h.Sum(sum[:0])
	return sum, nil
}

// SourceCache exposes the decoder's loaded names/contents arrays, the
// input ContentDigest is computed over.
func (d *Decoder) SourceCache() (names, contents []string) {
	return d.ctx.cache.names, d.ctx.cache.contents
}
