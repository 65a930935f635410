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

	"golang.org/x/exp/slices"
)

// Validate checks that witnesses and constraints form a dense,
// zero-based id sequence and that every cross-reference (a witness's
// originating constraint, a constraint's wired witnesses) points at an
// id that actually exists. It does not require the slices to already be
// sorted by id; EncodeToWriter sorts internally before writing.
func Validate(witnesses []EncodableWitness, constraints []EncodableConstraint) error {
	if len(witnesses) == 0 {
		return newDecodeError(ErrInvariant,
			"at least 1 witness is required (the reserved zero-witness), got 0")
	}

	seenW := make(map[uint64]bool, len(witnesses))
	for _, w := range witnesses {
		if w.ID >= uint64(len(witnesses)) {
			return newDecodeError(ErrInvariant,
				"witness id %d is out of range for %d witnesses", w.ID, len(witnesses))
		}
		if seenW[w.ID] {
			return newDecodeError(ErrInvariant, "duplicate witness id %d", w.ID)
		}
		seenW[w.ID] = true
	}

	seenC := make(map[uint64]bool, len(constraints))
	for _, c := range constraints {
		if c.ID >= uint64(len(constraints)) {
			return newDecodeError(ErrInvariant,
				"constraint id %d is out of range for %d constraints", c.ID, len(constraints))
		}
		if seenC[c.ID] {
			return newDecodeError(ErrInvariant, "duplicate constraint id %d", c.ID)
		}
		seenC[c.ID] = true
	}

	for _, w := range witnesses {
		if w.OriginatingConstraint.Valid && w.OriginatingConstraint.Value >= uint64(len(constraints)) {
			return newDecodeError(ErrInvariant,
				"witness %d originates from constraint %d, but only %d constraints are present",
				w.ID, w.OriginatingConstraint.Value, len(constraints))
		}
	}

	for _, c := range constraints {
		for _, wIdx := range [...]uint64{
			c.Polynomial.Witnesses.A, c.Polynomial.Witnesses.B,
			c.Polynomial.Witnesses.D, c.Polynomial.Witnesses.O,
		} {
			if wIdx >= uint64(len(witnesses)) {
				return newDecodeError(ErrInvariant,
					"constraint %d wires to witness %d, but only %d witnesses are present",
					c.ID, wIdx, len(witnesses))
			}
		}
	}

	return nil
}

// EncodeToWriter writes the preamble, witnesses, constraints and source
// cache to w in that order, returning the number of bytes written.
// witnesses and constraints may be given in any order; they're sorted by
// id before being laid out, since the id determines position in the
// fixed-stride record region.
func EncodeToWriter(w io.Writer, cfg Config, witnesses []EncodableWitness, constraints []EncodableConstraint, provider ContentProvider) (int64, error) {
	if err := Validate(witnesses, constraints); err != nil {
		return 0, err
	}

	witnesses = append([]EncodableWitness(nil), witnesses...)
	slices.SortFunc(witnesses, func(a, b EncodableWitness) bool { return a.ID < b.ID })

	constraints = append([]EncodableConstraint(nil), constraints...)
	slices.SortFunc(constraints, func(a, b EncodableConstraint) bool { return a.ID < b.ID })

	preamble := Preamble{
		Witnesses:   uint64(len(witnesses)),
		Constraints: uint64(len(constraints)),
		Config:      cfg,
	}
	ctx := newEncoderContext(preamble)

	var total int64

	pbuf := make([]byte, PreambleLen)
	preamble.encode(pbuf)
	n, err := w.Write(pbuf)
	total += int64(n)
	if err != nil {
		return total, err
	}

	wbuf := make([]byte, EncodableWitness{}.ByteLen(cfg))
	for _, wit := range witnesses {
		wit.encode(ctx, wbuf)
		n, err := w.Write(wbuf)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	cbuf := make([]byte, EncodableConstraint{}.ByteLen(cfg))
	for _, c := range constraints {
		c.encode(ctx, cbuf)
		n, err := w.Write(cbuf)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	n2, err := ctx.flush(w, provider)
	total += int64(n2)
	return total, err
}

// EncodeToFile creates (or truncates) path and writes a full CDF file to
// it. The file is pre-sized to the record region's length before the
// sequential write, mirroring the reference encoder's file-backed
// initializer.
func EncodeToFile(path string, cfg Config, witnesses []EncodableWitness, constraints []EncodableConstraint, provider ContentProvider) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	preamble := Preamble{
		Witnesses:   uint64(len(witnesses)),
		Constraints: uint64(len(constraints)),
		Config:      cfg,
	}
	if err := f.Truncate(preamble.SourceCacheOffset()); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = EncodeToWriter(f, cfg, witnesses, constraints, provider)
	return err
}
