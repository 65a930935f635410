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
	"github.com/codx-dev/zkdbg/cdf"
)

// Debugger holds a decoder, a breakpoint registry, and a cursor into the
// constraint sequence. It is not safe for concurrent use; callers that
// serve one Debugger to multiple goroutines must serialize access
// themselves (the DAP adapter does this with a per-session mutex).
type Debugger struct {
	dec    *cdf.Decoder
	bp     *Breakpoints
	cursor uint64
}

// New wraps an already-open decoder with a fresh cursor (at 0) and an
// empty breakpoint registry.
func New(dec *cdf.Decoder) *Debugger {
	return &Debugger{dec: dec, bp: NewBreakpoints()}
}

// Open opens the CDF file at path and wraps it in a new Debugger.
func Open(path string) (*Debugger, error) {
	dec, err := cdf.Open(path)
	if err != nil {
		return nil, err
	}
	return New(dec), nil
}

// Close releases the underlying decoder's resources.
func (d *Debugger) Close() error { return d.dec.Close() }

// Decoder returns the decoder this Debugger reads from.
func (d *Debugger) Decoder() *cdf.Decoder { return d.dec }

// Breakpoints returns the debugger's breakpoint registry.
func (d *Debugger) Breakpoints() *Breakpoints { return d.bp }

// Cursor returns the current constraint index.
func (d *Debugger) Cursor() uint64 { return d.cursor }

// FetchCurrentConstraint reads the constraint at the cursor.
func (d *Debugger) FetchCurrentConstraint() (cdf.Constraint, error) {
	return d.dec.FetchConstraint(d.cursor)
}

// FetchConstraint reads the constraint at idx.
func (d *Debugger) FetchConstraint(idx uint64) (cdf.Constraint, error) {
	return d.dec.FetchConstraint(idx)
}

// FetchWitness reads the witness at idx.
func (d *Debugger) FetchWitness(idx uint64) (cdf.Witness, error) {
	return d.dec.FetchWitness(idx)
}

func differentLine(a, b cdf.Constraint) bool {
	return a.Source.Name != b.Source.Name || a.Source.Line != b.Source.Line
}

func (d *Debugger) lastConstraint() uint64 {
	n := d.dec.Preamble().Constraints
	if n == 0 {
		return 0
	}
	return n - 1
}

// Goto moves the cursor directly to idx and classifies the constraint
// found there.
func (d *Debugger) Goto(idx uint64) (Transition, error) {
	if idx == 0 {
		d.cursor = 0
		return Transition{Kind: Beginning}, nil
	}

	c, err := d.dec.FetchConstraint(idx)
	if err != nil {
		return Transition{}, err
	}
	d.cursor = idx

	if !c.Polynomial.Evaluation {
		return Transition{Kind: InvalidConstraint, ID: idx}, nil
	}
	if idx == d.lastConstraint() {
		return Transition{Kind: End, ID: idx}, nil
	}
	return Transition{Kind: Constraint, ID: idx}, nil
}

// Step advances the cursor to the first gate of the next distinct source
// line (or to the last constraint), reporting InvalidConstraint or
// BreakpointHit when that first gate is invalid or matches a breakpoint.
// Gates that share the starting gate's line are skipped unchecked. One
// source line often lowers to several gates; Step advances one source
// statement, not one gate.
func (d *Debugger) Step() (Transition, error) {
	if d.dec.Preamble().Constraints == 0 {
		return Transition{Kind: End}, nil
	}

	eof := d.lastConstraint()
	idx := d.cursor
	if idx == eof {
		return Transition{Kind: End, ID: idx}, nil
	}

	origin, err := d.dec.FetchConstraint(idx)
	if err != nil {
		return Transition{}, err
	}

	for {
		idx++
		c, err := d.dec.FetchConstraint(idx)
		if err != nil {
			return Transition{}, err
		}
		lineChanged := differentLine(origin, c)

		if lineChanged && !c.Polynomial.Evaluation {
			d.cursor = idx
			return Transition{Kind: InvalidConstraint, ID: idx}, nil
		}
		if idx == eof {
			d.cursor = idx
			return Transition{Kind: End, ID: idx}, nil
		}
		if lineChanged {
			if id, ok := d.bp.Find(c.Source.Name, c.Source.Line); ok {
				d.cursor = idx
				return Transition{Kind: BreakpointHit, ID: idx, BreakpointID: id}, nil
			}
			break
		}
	}

	d.cursor = idx
	return Transition{Kind: Constraint, ID: idx}, nil
}

// Afore is the backward-by-source-line counterpart to Step.
func (d *Debugger) Afore() (Transition, error) {
	idx := d.cursor
	if idx == 0 {
		return Transition{Kind: Beginning}, nil
	}

	origin, err := d.dec.FetchConstraint(idx)
	if err != nil {
		return Transition{}, err
	}

	for {
		idx--
		if idx == 0 {
			d.cursor = 0
			return Transition{Kind: Beginning}, nil
		}

		c, err := d.dec.FetchConstraint(idx)
		if err != nil {
			return Transition{}, err
		}
		lineChanged := differentLine(origin, c)

		if lineChanged && !c.Polynomial.Evaluation {
			d.cursor = idx
			return Transition{Kind: InvalidConstraint, ID: idx}, nil
		}
		if lineChanged {
			if id, ok := d.bp.Find(c.Source.Name, c.Source.Line); ok {
				d.cursor = idx
				return Transition{Kind: BreakpointHit, ID: idx, BreakpointID: id}, nil
			}
			break
		}
	}

	d.cursor = idx
	return Transition{Kind: Constraint, ID: idx}, nil
}

// Cont advances the cursor, gate by gate, until the end of the
// constraint sequence, an invalid constraint, or a breakpoint hit —
// whichever comes first. Unlike Step, it halts on the very first
// matching gate regardless of whether the source line changed.
func (d *Debugger) Cont() (Transition, error) {
	if d.dec.Preamble().Constraints == 0 {
		return Transition{Kind: End}, nil
	}

	eof := d.lastConstraint()
	idx := d.cursor
	if idx == eof {
		return Transition{Kind: End, ID: idx}, nil
	}

	for {
		idx++
		c, err := d.dec.FetchConstraint(idx)
		if err != nil {
			return Transition{}, err
		}

		if !c.Polynomial.Evaluation {
			d.cursor = idx
			return Transition{Kind: InvalidConstraint, ID: idx}, nil
		}
		if idx == eof {
			d.cursor = idx
			return Transition{Kind: End, ID: idx}, nil
		}
		if id, ok := d.bp.Find(c.Source.Name, c.Source.Line); ok {
			d.cursor = idx
			return Transition{Kind: BreakpointHit, ID: idx, BreakpointID: id}, nil
		}
	}
}

// Turn is the backward counterpart to Cont: it halts at the latest
// invalid constraint or breakpoint strictly before the cursor, or at
// Beginning if none exists.
func (d *Debugger) Turn() (Transition, error) {
	idx := d.cursor
	if idx == 0 {
		return Transition{Kind: Beginning}, nil
	}

	for {
		idx--
		if idx == 0 {
			d.cursor = 0
			return Transition{Kind: Beginning}, nil
		}

		c, err := d.dec.FetchConstraint(idx)
		if err != nil {
			return Transition{}, err
		}

		if !c.Polynomial.Evaluation {
			d.cursor = idx
			return Transition{Kind: InvalidConstraint, ID: idx}, nil
		}
		if id, ok := d.bp.Find(c.Source.Name, c.Source.Line); ok {
			d.cursor = idx
			return Transition{Kind: BreakpointHit, ID: idx, BreakpointID: id}, nil
		}
	}
}
