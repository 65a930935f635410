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

// Package debugger implements the cursor-and-breakpoint state machine
// that steps through a decoded circuit description one source line or
// one gate at a time.
package debugger

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Breakpoint is a (source substring, optional line) rule. A nil Line
// matches every line of a source whose name contains Source.
type Breakpoint struct {
	Source string
	Line   *uint64
}

func (b Breakpoint) key() string {
	if b.Line == nil {
		return b.Source + "\x00"
	}
	var buf [8]byte
	n := *b.Line
	for i := range buf {
		buf[i] = byte(n)
		n >>= 8
	}
	return b.Source + "\x00" + string(buf[:])
}

// Matches reports whether source contains b.Source and, if b.Line is
// set, whether line equals it. The containment check (not equality) is
// intentional: a short IDE-supplied name like "gadgets.rs" should match
// a fully-qualified cache path like "src/gadgets.rs".
func (b Breakpoint) Matches(source string, line uint64) bool {
	if !strings.Contains(source, b.Source) {
		return false
	}
	return b.Line == nil || *b.Line == line
}

// Breakpoints is a registry of breakpoints keyed by a stable,
// monotonically-increasing numeric id. Id 0 is never assigned, so
// callers may use it to mean "no breakpoint".
type Breakpoints struct {
	nextID int
	byKey  map[string]int
	byID   map[int]Breakpoint
}

// NewBreakpoints returns an empty registry.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{
		nextID: 1,
		byKey:  make(map[string]int),
		byID:   make(map[int]Breakpoint),
	}
}

// Add registers a breakpoint, returning its id. Adding the exact same
// (source, line) pair twice returns the same id both times.
func (b *Breakpoints) Add(source string, line *uint64) int {
	bp := Breakpoint{Source: source, Line: line}
	k := bp.key()
	if id, ok := b.byKey[k]; ok {
		return id
	}
	id := b.nextID
	b.nextID++
	b.byKey[k] = id
	b.byID[id] = bp
	return id
}

// Remove deletes the breakpoint with the given id, returning it and
// true if it existed.
func (b *Breakpoints) Remove(id int) (Breakpoint, bool) {
	bp, ok := b.byID[id]
	if !ok {
		return Breakpoint{}, false
	}
	delete(b.byID, id)
	delete(b.byKey, bp.key())
	return bp, true
}

// ClearMatching removes every breakpoint whose Source is a substring of
// the given source path.
func (b *Breakpoints) ClearMatching(source string) {
	for id, bp := range b.byID {
		if strings.Contains(source, bp.Source) {
			delete(b.byID, id)
			delete(b.byKey, bp.key())
		}
	}
}

// Find returns the id of the first breakpoint matching (source, line),
// and whether one was found. "First" means lowest id, i.e. the
// breakpoint that was registered earliest and is still present — not
// Go's unspecified map iteration order.
func (b *Breakpoints) Find(source string, line uint64) (int, bool) {
	ids := b.List()
	slices.Sort(ids)
	for _, id := range ids {
		if b.byID[id].Matches(source, line) {
			return id, true
		}
	}
	return 0, false
}

// Get returns the breakpoint registered under id.
func (b *Breakpoints) Get(id int) (Breakpoint, bool) {
	bp, ok := b.byID[id]
	return bp, ok
}

// List returns every registered breakpoint id, in no particular order.
func (b *Breakpoints) List() []int {
	return maps.Keys(b.byID)
}

// Len reports how many breakpoints are currently registered.
func (b *Breakpoints) Len() int { return len(b.byID) }
