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

package dap

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluateKind classifies a parsed evaluate expression.
type EvaluateKind int

const (
	EvaluateCurrentConstraint EvaluateKind = iota
	EvaluateConstraint
	EvaluateWitness
)

// Evaluate is a parsed `evaluate` request expression: `c<n>` for a
// constraint, `w<n>` for a witness, or the single character `x` for the
// cursor's current constraint.
type Evaluate struct {
	Kind EvaluateKind
	ID   uint64
}

// ParseEvaluate parses expr per the grammar above. It is case-sensitive
// and inspects the leading byte directly, unlike the reference
// implementation's `split_at(0)`, which always splits before the first
// character and so can never branch on it (see DESIGN.md decision 3).
func ParseEvaluate(expr string) (Evaluate, error) {
	if expr == "x" {
		return Evaluate{Kind: EvaluateCurrentConstraint}, nil
	}

	switch {
	case strings.HasPrefix(expr, "c"):
		id, err := strconv.ParseUint(expr[1:], 10, 64)
		if err != nil {
			return Evaluate{}, fmt.Errorf("dap: invalid constraint expression %q: %w", expr, err)
		}
		return Evaluate{Kind: EvaluateConstraint, ID: id}, nil

	case strings.HasPrefix(expr, "w"):
		id, err := strconv.ParseUint(expr[1:], 10, 64)
		if err != nil {
			return Evaluate{}, fmt.Errorf("dap: invalid witness expression %q: %w", expr, err)
		}
		return Evaluate{Kind: EvaluateWitness, ID: id}, nil

	default:
		return Evaluate{}, fmt.Errorf("dap: unrecognized evaluate expression %q", expr)
	}
}
