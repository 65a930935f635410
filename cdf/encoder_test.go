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
	"bytes"
	"math/rand"
	"testing"
)

// scenario 1: minimal circuit.
func TestMinimalCircuit(t *testing.T) {
	witnesses := []EncodableWitness{{
		ID:     0,
		Value:  Scalar{},
		Source: EncodableSource{Line: 1, Col: 0, Path: "a.rs"},
	}}
	provider := MapProvider{"a.rs": "fn main() {}\n"}

	var buf bytes.Buffer
	if _, err := EncodeToWriter(&buf, Config{}, witnesses, nil, provider); err != nil {
		t.Fatal(err)
	}

	dec, err := NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	p := dec.Preamble()
	if p.Witnesses != 1 {
		t.Fatalf("witness_count = %d, want 1", p.Witnesses)
	}
	if p.Constraints != 0 {
		t.Fatalf("constraint_count = %d, want 0", p.Constraints)
	}

	w, err := dec.FetchWitness(0)
	if err != nil {
		t.Fatal(err)
	}
	if w.ID != 0 || w.Value != (Scalar{}) || w.Source.Name != "a.rs" || w.Source.Contents != "fn main() {}\n" {
		t.Fatalf("unexpected round-tripped witness: %+v", w)
	}
}

func TestOptionZeroFill(t *testing.T) {
	buf := make([]byte, optionalU64Len)
	for i := range buf {
		buf[i] = 0xff
	}
	encodeOptionalU64(buf, None)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d of encoded None is 0x%02x, want 0x00", i, b)
		}
	}

	got := decodeOptionalU64(buf)
	if got.Valid {
		t.Fatalf("decoded None as valid")
	}
}

func TestStrideDeterminism(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{ZeroedScalarValues: true},
		{CompressedSourceCache: true},
		{ZeroedScalarValues: true, CompressedSourceCache: true},
	} {
		want := EncodableWitness{}.ByteLen(cfg)
		for i := 0; i < 8; i++ {
			w := EncodableWitness{
				ID:                    uint64(i),
				OriginatingConstraint: Some(uint64(i)),
				Value:                 Scalar{byte(i)},
				Source:                EncodableSource{Line: uint64(i), Col: uint64(i), Path: "x"},
			}
			if got := w.ByteLen(cfg); got != want {
				t.Fatalf("ByteLen varies with payload under cfg %+v: %d vs %d", cfg, got, want)
			}
		}
	}
}

func TestDenseIndexRejection(t *testing.T) {
	witnesses := []EncodableWitness{
		{ID: 0, Source: EncodableSource{Path: "a"}},
		{ID: 2, Source: EncodableSource{Path: "a"}}, // gap at 1
	}
	if err := Validate(witnesses, nil); err == nil {
		t.Fatal("expected dense-index validation failure")
	}
}

func TestWiredIndexOutOfRange(t *testing.T) {
	witnesses := []EncodableWitness{{ID: 0, Source: EncodableSource{Path: "a"}}}
	constraints := []EncodableConstraint{{
		ID:         0,
		Polynomial: Polynomial{Witnesses: WiredWitnesses{A: 5}},
		Source:     EncodableSource{Path: "a"},
	}}
	if err := Validate(witnesses, constraints); err == nil {
		t.Fatal("expected wired-index validation failure")
	}
}

// scenario: seek correctness over shuffled input order.
func TestSeekCorrectnessShuffled(t *testing.T) {
	const n = 16
	witnesses := make([]EncodableWitness, n)
	provider := MapProvider{"f.rs": "contents"}
	for i := range witnesses {
		witnesses[i] = EncodableWitness{
			ID:     uint64(i),
			Value:  Scalar{byte(i)},
			Source: EncodableSource{Line: uint64(i), Path: "f.rs"},
		}
	}

	shuffled := append([]EncodableWitness(nil), witnesses...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var buf bytes.Buffer
	if _, err := EncodeToWriter(&buf, Config{}, shuffled, nil, provider); err != nil {
		t.Fatal(err)
	}

	dec, err := NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		got, err := dec.FetchWitness(uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != uint64(i) || got.Value != witnesses[i].Value {
			t.Fatalf("witness %d: got %+v, want id/value from %+v", i, got, witnesses[i])
		}
	}
}

func TestSourceCacheDedup(t *testing.T) {
	provider := MapProvider{"shared.rs": "same file"}
	witnesses := []EncodableWitness{
		{ID: 0, Source: EncodableSource{Path: "shared.rs"}},
		{ID: 1, Source: EncodableSource{Path: "shared.rs"}},
		{ID: 2, Source: EncodableSource{Path: "shared.rs"}},
	}

	var buf bytes.Buffer
	if _, err := EncodeToWriter(&buf, Config{}, witnesses, nil, provider); err != nil {
		t.Fatal(err)
	}

	dec, err := NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	names, _ := dec.SourceCache()
	if len(names) != 1 {
		t.Fatalf("expected 1 deduplicated cache entry, got %d: %v", len(names), names)
	}
}

func TestCompressedSourceCacheRoundTrip(t *testing.T) {
	witnesses, constraints, provider, err := GenerateFixture(7, FixtureOptions{Lines: 3, GatesPerLine: 2, SourceFiles: 2})
	if err != nil {
		t.Fatal(err)
	}

	var plain, compressed bytes.Buffer
	if _, err := EncodeToWriter(&plain, Config{}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeToWriter(&compressed, Config{CompressedSourceCache: true}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}

	plainDec, err := NewDecoder(bytes.NewReader(plain.Bytes()), int64(plain.Len()))
	if err != nil {
		t.Fatal(err)
	}
	compDec, err := NewDecoder(bytes.NewReader(compressed.Bytes()), int64(compressed.Len()))
	if err != nil {
		t.Fatal(err)
	}

	if plainDec.Preamble().Witnesses != compDec.Preamble().Witnesses {
		t.Fatal("witness_count differs between plain and compressed encodes")
	}
	if plainDec.Preamble().Constraints != compDec.Preamble().Constraints {
		t.Fatal("constraint_count differs between plain and compressed encodes")
	}

	pNames, pContents := plainDec.SourceCache()
	cNames, cContents := compDec.SourceCache()
	if len(pNames) != len(cNames) {
		t.Fatalf("cache length differs: %d vs %d", len(pNames), len(cNames))
	}
	for i := range pNames {
		if pNames[i] != cNames[i] || pContents[i] != cContents[i] {
			t.Fatalf("cache entry %d differs between plain and compressed decode", i)
		}
	}

	pDigest, err := ContentDigest(pNames, pContents)
	if err != nil {
		t.Fatal(err)
	}
	cDigest, err := ContentDigest(cNames, cContents)
	if err != nil {
		t.Fatal(err)
	}
	if pDigest != cDigest {
		t.Fatal("ContentDigest differs between plain and compressed encodes of the same logical input")
	}
}

func TestDigestDeterminism(t *testing.T) {
	witnesses, constraints, provider, err := GenerateFixture(42, FixtureOptions{Lines: 4, GatesPerLine: 3})
	if err != nil {
		t.Fatal(err)
	}

	var a, b bytes.Buffer
	if _, err := EncodeToWriter(&a, Config{}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeToWriter(&b, Config{}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}

	da, err := DigestFile(bytes.NewReader(a.Bytes()), int64(a.Len()))
	if err != nil {
		t.Fatal(err)
	}
	db, err := DigestFile(bytes.NewReader(b.Bytes()), int64(b.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if da != db {
		t.Fatalf("digest not deterministic: %+v vs %+v", da, db)
	}
}

func TestGenerateFixtureDerivedSeeds(t *testing.T) {
	seeds := DeriveSeeds(99, 5)
	seen := map[int64]bool{}
	for _, s := range seeds {
		if seen[s] {
			t.Fatalf("derived seeds collided: %v", seeds)
		}
		seen[s] = true
	}

	for _, s := range seeds {
		if _, _, _, err := GenerateFixture(s, FixtureOptions{Lines: 2, GatesPerLine: 2}); err != nil {
			t.Fatalf("seed %d produced an invalid fixture: %v", s, err)
		}
	}
}
