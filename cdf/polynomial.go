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

// Selectors carries the twelve PLONK gate selectors for one constraint, in
// the fixed order the wire format commits to.
type Selectors struct {
	QM             Scalar `json:"qm"`
	QL             Scalar `json:"ql"`
	QR             Scalar `json:"qr"`
	QD             Scalar `json:"qd"`
	QC             Scalar `json:"qc"`
	QO             Scalar `json:"qo"`
	PI             Scalar `json:"pi"`
	QArith         Scalar `json:"q_arith"`
	QLogic         Scalar `json:"q_logic"`
	QRange         Scalar `json:"q_range"`
	QGroupVariable Scalar `json:"q_group_variable"`
	QFixedAdd      Scalar `json:"q_fixed_add"`
}

// ByteLen implements Codable.
func (Selectors) ByteLen(cfg Config) int { return 12 * scalarByteLen(cfg) }

func (s Selectors) encode(cfg Config, buf []byte) {
	fields := [...]Scalar{
		s.QM, s.QL, s.QR, s.QD, s.QC, s.QO,
		s.PI, s.QArith, s.QLogic, s.QRange, s.QGroupVariable, s.QFixedAdd,
	}
	step := scalarByteLen(cfg)
	off := 0
	for _, f := range fields {
		encodeScalar(buf[off:], cfg, f)
		off += step
	}
}

func decodeSelectors(cfg Config, buf []byte) Selectors {
	step := scalarByteLen(cfg)
	next := func(off int) Scalar { return decodeScalar(buf[off:], cfg) }

	return Selectors{
		QM:             next(0 * step),
		QL:             next(1 * step),
		QR:             next(2 * step),
		QD:             next(3 * step),
		QC:             next(4 * step),
		QO:             next(5 * step),
		PI:             next(6 * step),
		QArith:         next(7 * step),
		QLogic:         next(8 * step),
		QRange:         next(9 * step),
		QGroupVariable: next(10 * step),
		QFixedAdd:      next(11 * step),
	}
}

// WiredWitnesses names the four witness slots a constraint's polynomial
// is wired to.
type WiredWitnesses struct {
	A uint64 `json:"a"`
	B uint64 `json:"b"`
	D uint64 `json:"d"`
	O uint64 `json:"o"`
}

// ByteLen implements Codable.
func (WiredWitnesses) ByteLen(Config) int { return 4 * u64Len }

func (w WiredWitnesses) encode(buf []byte) {
	encodeU64(buf[0*u64Len:], w.A)
	encodeU64(buf[1*u64Len:], w.B)
	encodeU64(buf[2*u64Len:], w.D)
	encodeU64(buf[3*u64Len:], w.O)
}

func decodeWiredWitnesses(buf []byte) WiredWitnesses {
	return WiredWitnesses{
		A: decodeU64(buf[0*u64Len:]),
		B: decodeU64(buf[1*u64Len:]),
		D: decodeU64(buf[2*u64Len:]),
		O: decodeU64(buf[3*u64Len:]),
	}
}

// Polynomial is the PLONK gate expression evaluated at one constraint:
// its selectors, the witness slots it reads, and whether it evaluated to
// zero (true) or not (false).
type Polynomial struct {
	Selectors  Selectors      `json:"selectors"`
	Witnesses  WiredWitnesses `json:"witnesses"`
	Evaluation bool           `json:"evaluation"`
}

// ByteLen implements Codable.
func (Polynomial) ByteLen(cfg Config) int {
	return Selectors{}.ByteLen(cfg) + WiredWitnesses{}.ByteLen(cfg) + boolLen
}

// IsOK reports whether the polynomial evaluated correctly (to zero).
func (p Polynomial) IsOK() bool { return p.Evaluation }

func (p Polynomial) encode(cfg Config, buf []byte) {
	off := 0
	p.Selectors.encode(cfg, buf[off:])
	off += p.Selectors.ByteLen(cfg)
	p.Witnesses.encode(buf[off:])
	off += p.Witnesses.ByteLen(cfg)
	encodeBool(buf[off:], p.Evaluation)
}

func decodePolynomial(cfg Config, buf []byte) Polynomial {
	off := 0
	selectors := decodeSelectors(cfg, buf[off:])
	off += selectors.ByteLen(cfg)
	witnesses := decodeWiredWitnesses(buf[off:])
	off += witnesses.ByteLen(cfg)
	evaluation := decodeBool(buf[off:])

	return Polynomial{Selectors: selectors, Witnesses: witnesses, Evaluation: evaluation}
}
