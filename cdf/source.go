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

// sourceTripleLen is the wire width of a (line, col, cache index) triple:
// two uint64s plus one uint64 index, regardless of Config.
const sourceTripleLen = 2*u64Len + u64Len

// EncodableSource is a witness's or constraint's source location as given
// to the encoder: a line, a column, and the path of the file it came from.
// The path is resolved to a cache index during encoding.
type EncodableSource struct {
	Line uint64
	Col  uint64
	Path string
}

// ByteLen implements Codable.
func (EncodableSource) ByteLen(Config) int { return sourceTripleLen }

func (s EncodableSource) encode(ctx *EncoderContext, buf []byte) {
	idx := ctx.AddPath(s.Path)
	encodeU64(buf, s.Line)
	encodeU64(buf[u64Len:], s.Col)
	encodeU64(buf[2*u64Len:], uint64(idx))
}

// SourceRef is a witness's or constraint's source location as read back
// from a decoded file: the cache index has already been resolved to the
// file's name and contents.
type SourceRef struct {
	Line     uint64 `json:"line"`
	Col      uint64 `json:"col"`
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

// ByteLen implements Codable.
func (SourceRef) ByteLen(Config) int { return sourceTripleLen }

func decodeSourceRef(ctx *DecoderContext, buf []byte) (SourceRef, error) {
	line := decodeU64(buf)
	col := decodeU64(buf[u64Len:])
	idx := decodeU64(buf[2*u64Len:])

	name, ok := ctx.cache.name(idx)
	if !ok {
		return SourceRef{}, newDecodeError(ErrCacheIndexOutOfRange,
			"source name index %d not present in cache of size %d", idx, ctx.cache.len())
	}
	contents, ok := ctx.cache.contents(idx)
	if !ok {
		return SourceRef{}, newDecodeError(ErrCacheIndexOutOfRange,
			"source contents index %d not present in cache of size %d", idx, ctx.cache.len())
	}

	return SourceRef{Line: line, Col: col, Name: name, Contents: contents}, nil
}
