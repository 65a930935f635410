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

// EncodableWitness is a witness value as given to the encoder.
type EncodableWitness struct {
	ID                    uint64
	OriginatingConstraint OptionalU64
	Value                 Scalar
	Source                EncodableSource
}

// ByteLen implements Codable.
func (EncodableWitness) ByteLen(cfg Config) int {
	return u64Len + optionalU64Len + scalarByteLen(cfg) + sourceTripleLen
}

func (w EncodableWitness) encode(ctx *EncoderContext, buf []byte) {
	cfg := ctx.Config()
	off := 0
	encodeU64(buf[off:], w.ID)
	off += u64Len
	encodeOptionalU64(buf[off:], w.OriginatingConstraint)
	off += optionalU64Len
	encodeScalar(buf[off:], cfg, w.Value)
	off += scalarByteLen(cfg)
	w.Source.encode(ctx, buf[off:])
}

// Witness is a witness value as read back from a decoded file.
type Witness struct {
	ID                    uint64      `json:"id"`
	OriginatingConstraint OptionalU64 `json:"originating_constraint"`
	Value                 Scalar      `json:"value"`
	Source                SourceRef   `json:"source"`
}

// ByteLen implements Codable.
func (Witness) ByteLen(cfg Config) int {
	return u64Len + optionalU64Len + scalarByteLen(cfg) + sourceTripleLen
}

func decodeWitness(ctx *DecoderContext, buf []byte) (Witness, error) {
	cfg := ctx.cfg
	if len(buf) < Witness{}.ByteLen(cfg) {
		return Witness{}, newDecodeError(ErrShortBuffer, "witness record")
	}

	off := 0
	id := decodeU64(buf[off:])
	off += u64Len
	originating := decodeOptionalU64(buf[off:])
	off += optionalU64Len
	value := decodeScalar(buf[off:], cfg)
	off += scalarByteLen(cfg)
	source, err := decodeSourceRef(ctx, buf[off:])
	if err != nil {
		return Witness{}, err
	}

	return Witness{
		ID:                    id,
		OriginatingConstraint: originating,
		Value:                 value,
		Source:                source,
	}, nil
}
