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

// EncodableConstraint is a constraint as given to the encoder.
type EncodableConstraint struct {
	ID         uint64
	Polynomial Polynomial
	Source     EncodableSource
}

// ByteLen implements Codable.
func (EncodableConstraint) ByteLen(cfg Config) int {
	return u64Len + Polynomial{}.ByteLen(cfg) + sourceTripleLen
}

func (c EncodableConstraint) encode(ctx *EncoderContext, buf []byte) {
	cfg := ctx.Config()
	off := 0
	encodeU64(buf[off:], c.ID)
	off += u64Len
	c.Polynomial.encode(cfg, buf[off:])
	off += c.Polynomial.ByteLen(cfg)
	c.Source.encode(ctx, buf[off:])
}

// Constraint is a constraint as read back from a decoded file.
type Constraint struct {
	ID         uint64     `json:"id"`
	Polynomial Polynomial `json:"polynomial"`
	Source     SourceRef  `json:"source"`
}

// ByteLen implements Codable.
func (Constraint) ByteLen(cfg Config) int {
	return u64Len + Polynomial{}.ByteLen(cfg) + sourceTripleLen
}

func decodeConstraint(ctx *DecoderContext, buf []byte) (Constraint, error) {
	cfg := ctx.cfg
	if len(buf) < Constraint{}.ByteLen(cfg) {
		return Constraint{}, newDecodeError(ErrShortBuffer, "constraint record")
	}

	off := 0
	id := decodeU64(buf[off:])
	off += u64Len
	poly := decodePolynomial(cfg, buf[off:])
	off += poly.ByteLen(cfg)
	source, err := decodeSourceRef(ctx, buf[off:])
	if err != nil {
		return Constraint{}, err
	}

	return Constraint{ID: id, Polynomial: poly, Source: source}, nil
}
