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

// Package compr wraps the zstd codec used to shrink a CDF file's source
// cache blobs: the only compression algorithm the format supports.
package compr

import (
	"fmt"
	"runtime"

	"github.com/klauspost/compress/zstd"
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	e, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	encoder = e

	// by default, concurrency is set to min(4, GOMAXPROCS);
	// we'd like it to *always* be GOMAXPROCS
	d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	decoder = d
}

// Compress appends the zstd-compressed contents of src to dst and returns
// the result.
func Compress(src, dst []byte) []byte {
	return encoder.EncodeAll(src, dst)
}

// Decompress decompresses src into dst. It errors out if the decompressed
// size doesn't match len(dst), since every call site here already knows
// the exact raw length up front.
//
// It's safe to call Decompress simultaneously from different goroutines.
func Decompress(src, dst []byte) error {
	into := dst[:0:len(dst)]
	ret, err := decoder.DecodeAll(src, into)
	if err != nil {
		return err
	}
	if len(ret) != len(dst) {
		return fmt.Errorf("expected %d bytes decompressed; got %d", len(dst), len(ret))
	}
	return nil
}
