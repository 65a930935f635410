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
	"io"
	"os"
)

// Source is what a Decoder reads a CDF file from. io.ReaderAt gives the
// decoder pread-style random access without a shared seek cursor, which
// keeps concurrent FetchWitness/FetchConstraint calls on the same Decoder
// safe without any locking.
type Source interface {
	io.ReaderAt
}

// DecoderContext carries the pieces a record decode needs beyond its own
// bytes: the active Config and the already-loaded source cache.
type DecoderContext struct {
	cfg   Config
	cache sourceCache
}

// Decoder gives lazy, seek-by-index access to a CDF file: the preamble
// and source cache are loaded once, up front, and every other record is
// read only when asked for.
type Decoder struct {
	src      Source
	preamble Preamble
	ctx      DecoderContext
}

// Open opens path read-only and loads it as a Decoder.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	d, err := NewDecoder(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// NewDecoder loads a Decoder from src, which is size bytes long.
func NewDecoder(src Source, size int64) (*Decoder, error) {
	if size < int64(PreambleLen) {
		return nil, newDecodeError(ErrShortBuffer,
			"file is %d bytes, shorter than the %d-byte preamble", size, PreambleLen)
	}

	pbuf := make([]byte, PreambleLen)
	if _, err := src.ReadAt(pbuf, 0); err != nil {
		return nil, err
	}
	preamble := decodePreamble(pbuf)
	if preamble.Witnesses == 0 {
		return nil, newDecodeError(ErrInvariant,
			"witness_count is 0; the format requires a reserved zero-witness")
	}

	cacheOff := preamble.SourceCacheOffset()
	if cacheOff > size {
		return nil, newDecodeError(ErrMalformedCache,
			"source cache offset %d exceeds file size %d", cacheOff, size)
	}

	cache, err := readSourceCache(io.NewSectionReader(src, cacheOff, size-cacheOff), preamble.Config)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		src:      src,
		preamble: preamble,
		ctx:      DecoderContext{cfg: preamble.Config, cache: cache},
	}, nil
}

// Preamble returns the decoded file header.
func (d *Decoder) Preamble() Preamble { return d.preamble }

// Close releases the underlying source, if it supports closing.
func (d *Decoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FetchWitness reads and decodes the witness at idx.
func (d *Decoder) FetchWitness(idx uint64) (Witness, error) {
	off, ok := d.preamble.WitnessOffset(idx)
	if !ok {
		return Witness{}, newDecodeError(ErrInvalidIndex,
			"witness %d out of range (have %d)", idx, d.preamble.Witnesses)
	}

	buf := make([]byte, Witness{}.ByteLen(d.preamble.Config))
	if _, err := d.src.ReadAt(buf, off); err != nil {
		return Witness{}, err
	}
	return decodeWitness(&d.ctx, buf)
}

// FetchConstraint reads and decodes the constraint at idx.
func (d *Decoder) FetchConstraint(idx uint64) (Constraint, error) {
	off, ok := d.preamble.ConstraintOffset(idx)
	if !ok {
		return Constraint{}, newDecodeError(ErrInvalidIndex,
			"constraint %d out of range (have %d)", idx, d.preamble.Constraints)
	}

	buf := make([]byte, Constraint{}.ByteLen(d.preamble.Config))
	if _, err := d.src.ReadAt(buf, off); err != nil {
		return Constraint{}, err
	}
	return decodeConstraint(&d.ctx, buf)
}
