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

// Preamble is the fixed-size header at offset zero of a CDF file: the
// witness and constraint counts and the Config the rest of the file is
// interpreted under.
type Preamble struct {
	Witnesses   uint64
	Constraints uint64
	Config      Config
}

// PreambleLen is the wire width of a Preamble.
const PreambleLen = 2*u64Len + ConfigLen

// ByteLen implements Codable.
func (Preamble) ByteLen(Config) int { return PreambleLen }

func (p Preamble) encode(buf []byte) {
	encodeU64(buf, p.Witnesses)
	encodeU64(buf[u64Len:], p.Constraints)
	p.Config.encode(buf[2*u64Len:])
}

func decodePreamble(buf []byte) Preamble {
	return Preamble{
		Witnesses:   decodeU64(buf),
		Constraints: decodeU64(buf[u64Len:]),
		Config:      decodeConfig(buf[2*u64Len:]),
	}
}

// WitnessOffset returns the byte offset of witness idx, or false if idx
// is out of range for this preamble.
func (p Preamble) WitnessOffset(idx uint64) (int64, bool) {
	if idx >= p.Witnesses {
		return 0, false
	}
	step := int64(Witness{}.ByteLen(p.Config))
	return int64(PreambleLen) + int64(idx)*step, true
}

// ConstraintOffset returns the byte offset of constraint idx, or false if
// idx is out of range for this preamble.
func (p Preamble) ConstraintOffset(idx uint64) (int64, bool) {
	if idx >= p.Constraints {
		return 0, false
	}
	wstep := int64(Witness{}.ByteLen(p.Config))
	cstep := int64(Constraint{}.ByteLen(p.Config))
	base := int64(PreambleLen) + int64(p.Witnesses)*wstep
	return base + int64(idx)*cstep, true
}

// SourceCacheOffset returns the byte offset where the trailing source
// cache begins: right after the last fixed-stride record.
func (p Preamble) SourceCacheOffset() int64 {
	wstep := int64(Witness{}.ByteLen(p.Config))
	cstep := int64(Constraint{}.ByteLen(p.Config))
	return int64(PreambleLen) + int64(p.Witnesses)*wstep + int64(p.Constraints)*cstep
}
