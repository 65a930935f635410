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
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// preset is the on-disk shape of a `-breakpoints=file.yaml` file: a
// named list of breakpoints, read from disk again by every DAP session
// when it handles initialize. Struct tags
// are `json`, not `yaml`: sigs.k8s.io/yaml decodes YAML by converting it
// to JSON first and unmarshaling that, the same dual JSON/YAML
// convention db.Definition uses for its own on-disk definitions.
type preset struct {
	Breakpoints []presetLine `json:"breakpoints"`
}

type presetLine struct {
	Source string  `json:"source"`
	Line   *uint64 `json:"line,omitempty"`
}

// LoadPreset reads a YAML breakpoint preset file and registers every
// entry it contains. It does not clear existing breakpoints first, so
// callers that want a clean slate should construct a fresh Breakpoints
// registry before loading.
func LoadPreset(path string, bp *Breakpoints) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("debugger: reading breakpoint preset %q: %w", path, err)
	}

	var p preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("debugger: parsing breakpoint preset %q: %w", path, err)
	}

	for i, entry := range p.Breakpoints {
		if entry.Source == "" {
			return fmt.Errorf("debugger: breakpoint preset %q entry %d has no source", path, i)
		}
		bp.Add(entry.Source, entry.Line)
	}
	return nil
}
