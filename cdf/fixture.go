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
	"fmt"
	"math/rand"

	"github.com/dchest/siphash"
)

// FixtureOptions controls the shape of a generated test circuit. Every
// field has a usable zero value except Lines, which must be at least 1.
type FixtureOptions struct {
	// Lines is the number of distinct (source, line) statements the
	// fixture lowers to. Must be >= 1.
	Lines int
	// GatesPerLine is how many constraints each source line lowers to.
	// Defaults to 1 if <= 0.
	GatesPerLine int
	// SourceFiles is the number of distinct file names lines are spread
	// across, round-robin. Defaults to 1 if <= 0.
	SourceFiles int
	// InvalidLines lists zero-based line indices whose *first* gate
	// should evaluate to false; every other gate evaluates true. A line
	// index outside [0, Lines) is ignored.
	InvalidLines []int
	// Config is not read by GenerateFixture: the returned witnesses and
	// constraints are the same for every Config, and the Config used to
	// encode them is chosen by the caller of the encoder.
	Config Config
}

// GenerateFixture builds a pseudo-random but structurally sound circuit:
// a dense witness sequence and a dense constraint sequence whose wiring
// and originating-constraint references never escape range, driven by a
// seeded math/rand so a failing test is reproducible. The fixture is
// cross-checked with Validate before it's returned, so a mistake in this
// generator itself fails loudly here instead of silently in a caller.
func GenerateFixture(seed int64, opts FixtureOptions) ([]EncodableWitness, []EncodableConstraint, MapProvider, error) {
	if opts.Lines <= 0 {
		return nil, nil, nil, fmt.Errorf("cdf: fixture needs at least 1 line, got %d", opts.Lines)
	}
	gatesPerLine := opts.GatesPerLine
	if gatesPerLine <= 0 {
		gatesPerLine = 1
	}
	sourceFiles := opts.SourceFiles
	if sourceFiles <= 0 {
		sourceFiles = 1
	}

	rng := rand.New(rand.NewSource(seed))

	invalidLine := make(map[int]bool, len(opts.InvalidLines))
	for _, l := range opts.InvalidLines {
		invalidLine[l] = true
	}

	files := make([]string, sourceFiles)
	provider := make(MapProvider, sourceFiles)
	for i := range files {
		name := fmt.Sprintf("src/fixture_%d.rs", i)
		files[i] = name
		provider[name] = fmt.Sprintf("// generated fixture source %d\nfn gate() {}\n", i)
	}

	totalGates := opts.Lines * gatesPerLine
	// witness 0 is the protocol-reserved constant-zero witness; every
	// other witness is declared by the gate that allocates it.
	numWitnesses := totalGates + 1

	witnesses := make([]EncodableWitness, numWitnesses)
	witnesses[0] = EncodableWitness{
		ID:     0,
		Value:  Scalar{},
		Source: EncodableSource{Line: 1, Col: 0, Path: files[0]},
	}

	constraints := make([]EncodableConstraint, totalGates)

	gate := 0
	for line := 0; line < opts.Lines; line++ {
		name := files[line%sourceFiles]
		lineNo := uint64(line + 1)

		for g := 0; g < gatesPerLine; g++ {
			wid := uint64(gate + 1)
			witnesses[wid] = EncodableWitness{
				ID:                    wid,
				OriginatingConstraint: Some(uint64(gate)),
				Value:                 randomScalar(rng),
				Source:                EncodableSource{Line: lineNo, Col: uint64(g), Path: name},
			}

			evaluation := true
			if g == 0 && invalidLine[line] {
				evaluation = false
			}

			constraints[gate] = EncodableConstraint{
				ID: uint64(gate),
				Polynomial: Polynomial{
					Selectors: randomSelectors(rng),
					Witnesses: WiredWitnesses{
						A: uint64(gate) % uint64(numWitnesses),
						B: wid,
						D: uint64((gate + 1) % numWitnesses),
						O: 0,
					},
					Evaluation: evaluation,
				},
				Source: EncodableSource{Line: lineNo, Col: uint64(g), Path: name},
			}

			gate++
		}
	}

	if err := Validate(witnesses, constraints); err != nil {
		return nil, nil, nil, fmt.Errorf("cdf: generated fixture failed its own invariants: %w", err)
	}

	return witnesses, constraints, provider, nil
}

func randomScalar(rng *rand.Rand) Scalar {
	var s Scalar
	for i := 0; i < len(s); i += 8 {
		binary.LittleEndian.PutUint64(s[i:], rng.Uint64())
	}
	return s
}

func randomSelectors(rng *rand.Rand) Selectors {
	return Selectors{
		QM: randomScalar(rng), QL: randomScalar(rng), QR: randomScalar(rng),
		QD: randomScalar(rng), QC: randomScalar(rng), QO: randomScalar(rng),
		PI: randomScalar(rng), QArith: randomScalar(rng), QLogic: randomScalar(rng),
		QRange: randomScalar(rng), QGroupVariable: randomScalar(rng), QFixedAdd: randomScalar(rng),
	}
}

// DeriveSeeds expands one top-level seed into n correlated-but-distinct
// seeds using siphash as a fast mixing function, so a table-driven test
// can generate a batch of related fixtures from a single seed argument
// without them degenerating into repeats of each other.
func DeriveSeeds(seed int64, n int) []int64 {
	out := make([]int64, n)
	var buf [8]byte
	for i := range out {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		lo, _ := siphash.Hash128(uint64(seed), uint64(seed>>32|seed<<32), buf[:])
		out[i] = int64(lo)
	}
	return out
}
