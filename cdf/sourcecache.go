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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/codx-dev/zkdbg/compr"
)

// ContentProvider resolves a source path to its textual contents while
// encoding. Implementations may hit the filesystem, an in-memory map, or
// anything else capable of answering "what's in this file".
type ContentProvider interface {
	Contents(path string) (string, error)
}

// FileProvider is the default ContentProvider: it reads paths straight
// off the local filesystem.
type FileProvider struct{}

// Contents implements ContentProvider.
func (FileProvider) Contents(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MapProvider is a ContentProvider backed by an in-memory map, useful in
// tests and fixture generation where there's no real file on disk.
type MapProvider map[string]string

// Contents implements ContentProvider.
func (m MapProvider) Contents(path string) (string, error) {
	s, ok := m[path]
	if !ok {
		return "", fmt.Errorf("cdf: path %q has no registered contents", path)
	}
	return s, nil
}

// EncoderContext accumulates the set of distinct source paths referenced
// while encoding a file's witnesses and constraints, assigning each a
// dense cache index the first time it's seen.
type EncoderContext struct {
	preamble  Preamble
	pathOrder []string
	pathIndex map[string]int
}

func newEncoderContext(preamble Preamble) *EncoderContext {
	return &EncoderContext{
		preamble:  preamble,
		pathIndex: make(map[string]int),
	}
}

// Config returns the encoding configuration this context was created with.
func (c *EncoderContext) Config() Config { return c.preamble.Config }

// AddPath registers path in the source cache, returning its index. A path
// seen before returns the index it was first assigned.
func (c *EncoderContext) AddPath(path string) int {
	if idx, ok := c.pathIndex[path]; ok {
		return idx
	}
	idx := len(c.pathOrder)
	c.pathOrder = append(c.pathOrder, path)
	c.pathIndex[path] = idx
	return idx
}

func (c *EncoderContext) flush(w io.Writer, provider ContentProvider) (int, error) {
	contents := make([]string, len(c.pathOrder))
	for i, path := range c.pathOrder {
		s, err := provider.Contents(path)
		if err != nil {
			return 0, fmt.Errorf("cdf: resolving contents of %q: %w", path, err)
		}
		contents[i] = s
	}

	var namesBuf, contentsBuf bytes.Buffer
	if _, err := encodeMsgpackStringArray(&namesBuf, c.pathOrder); err != nil {
		return 0, err
	}
	if _, err := encodeMsgpackStringArray(&contentsBuf, contents); err != nil {
		return 0, err
	}

	if !c.preamble.Config.CompressedSourceCache {
		n, err := w.Write(namesBuf.Bytes())
		if err != nil {
			return n, err
		}
		m, err := w.Write(contentsBuf.Bytes())
		return n + m, err
	}

	n1, err := writeCompressedBlob(w, namesBuf.Bytes())
	if err != nil {
		return n1, err
	}
	n2, err := writeCompressedBlob(w, contentsBuf.Bytes())
	return n1 + n2, err
}

// writeCompressedBlob writes [rawLen uint64][compressedLen uint64][compressed bytes].
func writeCompressedBlob(w io.Writer, raw []byte) (int, error) {
	comp := compr.Compress(raw, nil)

	var header [16]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(raw)))
	binary.LittleEndian.PutUint64(header[8:], uint64(len(comp)))

	n, err := w.Write(header[:])
	if err != nil {
		return n, err
	}
	m, err := w.Write(comp)
	return n + m, err
}

func readCompressedBlob(r io.Reader) ([]byte, error) {
	var header [16]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	rawLen := binary.LittleEndian.Uint64(header[:8])
	compLen := binary.LittleEndian.Uint64(header[8:])

	comp := make([]byte, compLen)
	if _, err := io.ReadFull(r, comp); err != nil {
		return nil, err
	}

	raw := make([]byte, rawLen)
	if err := compr.Decompress(comp, raw); err != nil {
		return nil, fmt.Errorf("cdf: decompressing source cache blob: %w", err)
	}
	return raw, nil
}

// sourceCache is the decoder-side view of the source cache: parallel
// names and contents arrays, indexed by the same cache index recorded in
// every encoded SourceRef.
type sourceCache struct {
	names    []string
	contents []string
}

func readSourceCache(r io.Reader, cfg Config) (sourceCache, error) {
	var names, contents []string
	var err error

	if cfg.CompressedSourceCache {
		var raw []byte
		if raw, err = readCompressedBlob(r); err != nil {
			return sourceCache{}, err
		}
		if names, err = decodeMsgpackStringArray(bytes.NewReader(raw)); err != nil {
			return sourceCache{}, newDecodeError(ErrMalformedCache, "names array: %v", err)
		}
		if raw, err = readCompressedBlob(r); err != nil {
			return sourceCache{}, err
		}
		if contents, err = decodeMsgpackStringArray(bytes.NewReader(raw)); err != nil {
			return sourceCache{}, newDecodeError(ErrMalformedCache, "contents array: %v", err)
		}
	} else {
		if names, err = decodeMsgpackStringArray(r); err != nil {
			return sourceCache{}, newDecodeError(ErrMalformedCache, "names array: %v", err)
		}
		if contents, err = decodeMsgpackStringArray(r); err != nil {
			return sourceCache{}, newDecodeError(ErrMalformedCache, "contents array: %v", err)
		}
	}

	if len(names) != len(contents) {
		return sourceCache{}, newDecodeError(ErrMalformedCache,
			"names array has %d entries but contents array has %d", len(names), len(contents))
	}

	return sourceCache{names: names, contents: contents}, nil
}

func (c sourceCache) len() int { return len(c.names) }

func (c sourceCache) name(idx uint64) (string, bool) {
	if idx >= uint64(len(c.names)) {
		return "", false
	}
	return c.names[idx], true
}

func (c sourceCache) contents(idx uint64) (string, bool) {
	if idx >= uint64(len(c.contents)) {
		return "", false
	}
	return c.contents[idx], true
}
