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

// Package cdf implements the circuit description file format: a dense,
// fixed-stride binary encoding of a PLONK-style constraint system with an
// appended, deduplicated cache of the source files each witness and
// constraint was generated from.
//
// Every record type in the package follows the same contract: its
// serialized length is a pure function of a Config value, never of the
// record's own contents, so any record can be located by index with a
// single seek.
package cdf

// Config selects the two format variants the encoder and decoder agree on.
// Every record's ByteLen is a function of Config alone.
type Config struct {
	// ZeroedScalarValues, when set, omits scalar field values from the
	// encoded stream entirely (their ByteLen becomes zero) instead of
	// writing 32 zero bytes per slot. Used to shrink fixtures whose
	// scalar contents aren't under test.
	ZeroedScalarValues bool

	// CompressedSourceCache, when set, wraps the names and contents
	// byte streams in the trailing source cache with zstd.
	CompressedSourceCache bool
}

// ConfigLen is the fixed wire length of a Config value.
const ConfigLen = 1

const (
	configBitZeroedScalars = 1 << 0
	configBitCompressedSrc = 1 << 1
)

// ByteLen implements Codable.
func (Config) ByteLen(Config) int { return ConfigLen }

func (c Config) encode(buf []byte) {
	var b byte
	if c.ZeroedScalarValues {
		b |= configBitZeroedScalars
	}
	if c.CompressedSourceCache {
		b |= configBitCompressedSrc
	}
	buf[0] = b
}

func decodeConfig(buf []byte) Config {
	b := buf[0]
	return Config{
		ZeroedScalarValues:    b&configBitZeroedScalars != 0,
		CompressedSourceCache: b&configBitCompressedSrc != 0,
	}
}

// Codable is the uniform contract every CDF record type satisfies: its
// serialized size depends only on the shared Config, never on the record's
// own contents. Encoding and decoding are expressed as free functions per
// type rather than methods of this interface, since Go's primitive and
// record types don't share a common decode signature the way a trait
// object would — ByteLen is the one piece of the contract that every type
// can express uniformly, and it's what the offset formulas in preamble.go
// are built on.
type Codable interface {
	ByteLen(cfg Config) int
}
