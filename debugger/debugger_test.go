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

package debugger

import (
	"bytes"
	"testing"

	"github.com/codx-dev/zkdbg/cdf"
)

func openFixture(t *testing.T, seed int64, opts cdf.FixtureOptions) *Debugger {
	t.Helper()

	witnesses, constraints, provider, err := cdf.GenerateFixture(seed, opts)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := cdf.EncodeToWriter(&buf, cdf.Config{}, witnesses, constraints, provider); err != nil {
		t.Fatal(err)
	}

	dec, err := cdf.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	return New(dec)
}

// scenario: step over a multi-gate line lands on the first gate of the
// next line, not the next gate of the current one.
func TestStepCrossesMultiGateLine(t *testing.T) {
	dbg := openFixture(t, 1, cdf.FixtureOptions{Lines: 3, GatesPerLine: 4})

	tr, err := dbg.Step()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind != Constraint {
		t.Fatalf("Step() kind = %v, want Constraint", tr.Kind)
	}

	c, err := dbg.FetchConstraint(tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Source.Line != 2 {
		t.Fatalf("Step() landed on line %d, want line 2 (the 2nd source line)", c.Source.Line)
	}
	if tr.ID != 4 {
		t.Fatalf("Step() landed on constraint %d, want 4 (first gate of line 2)", tr.ID)
	}
}

// scenario: Step halts with InvalidConstraint when the first gate of the
// next source line is invalid.
func TestStepHaltsOnInvalidConstraint(t *testing.T) {
	dbg := openFixture(t, 2, cdf.FixtureOptions{Lines: 3, GatesPerLine: 2, InvalidLines: []int{1}})

	tr, err := dbg.Step()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind != InvalidConstraint {
		t.Fatalf("Step() kind = %v, want InvalidConstraint", tr.Kind)
	}
	c, err := dbg.FetchConstraint(tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Polynomial.Evaluation {
		t.Fatal("halted constraint evaluates true, expected false")
	}
}

// scenario: Cont halts on a breakpoint even without a line change.
func TestContHaltsOnBreakpoint(t *testing.T) {
	dbg := openFixture(t, 3, cdf.FixtureOptions{Lines: 4, GatesPerLine: 2})

	first, err := dbg.FetchConstraint(1)
	if err != nil {
		t.Fatal(err)
	}
	line := first.Source.Line
	dbg.Breakpoints().Add(first.Source.Name, &line)

	tr, err := dbg.Cont()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind != BreakpointHit {
		t.Fatalf("Cont() kind = %v, want BreakpointHit", tr.Kind)
	}
	if tr.ID != 1 {
		t.Fatalf("Cont() halted at %d, want 1", tr.ID)
	}
}

// scenario: with no invalid gates and no breakpoints, Cont from the
// beginning runs to the end and Turn runs back to Beginning, returning
// the cursor to where it started.
func TestTurnReversesCont(t *testing.T) {
	dbg := openFixture(t, 4, cdf.FixtureOptions{Lines: 5, GatesPerLine: 3})

	start := dbg.Cursor()
	if _, err := dbg.Cont(); err != nil {
		t.Fatal(err)
	}
	afterCont := dbg.Cursor()
	if afterCont == start {
		t.Fatal("Cont() did not move the cursor")
	}

	tr, err := dbg.Turn()
	if err != nil {
		t.Fatal(err)
	}
	if dbg.Cursor() != start {
		t.Fatalf("Turn() landed on %d, want starting cursor %d", dbg.Cursor(), start)
	}
	if tr.Kind != Beginning {
		t.Fatalf("Turn() kind = %v, want Beginning", tr.Kind)
	}
}

func TestGotoBeginningAndEnd(t *testing.T) {
	dbg := openFixture(t, 5, cdf.FixtureOptions{Lines: 2, GatesPerLine: 2})

	tr, err := dbg.Goto(0)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind != Beginning {
		t.Fatalf("Goto(0) kind = %v, want Beginning", tr.Kind)
	}

	last := dbg.lastConstraint()
	tr, err = dbg.Goto(last)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind != End {
		t.Fatalf("Goto(last) kind = %v, want End", tr.Kind)
	}
}

// Afore moves to the previous distinct source line, landing on the last
// gate of that line (the first index, walking backward, whose line
// differs from the cursor's) — not on that line's first gate.
func TestAforeEntersPreviousLineFromItsLastGate(t *testing.T) {
	dbg := openFixture(t, 6, cdf.FixtureOptions{Lines: 4, GatesPerLine: 3})

	if _, err := dbg.Step(); err != nil {
		t.Fatal(err)
	}
	if _, err := dbg.Step(); err != nil {
		t.Fatal(err)
	}
	if dbg.Cursor() != 6 {
		t.Fatalf("cursor after two Step() calls = %d, want 6", dbg.Cursor())
	}

	tr, err := dbg.Afore()
	if err != nil {
		t.Fatal(err)
	}
	if dbg.Cursor() != 5 {
		t.Fatalf("Afore() landed on %d, want 5 (last gate of the previous line)", dbg.Cursor())
	}
	if tr.Kind != Constraint {
		t.Fatalf("Afore() kind = %v, want Constraint", tr.Kind)
	}
}
