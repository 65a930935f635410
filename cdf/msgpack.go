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
	"io"
)

// This file frames the source cache's names and contents arrays the same
// way the reference encoder does: as a msgpack array of msgpack strings.
// No msgpack library appears anywhere in the retrieved example pack, so
// this is a small, direct encoding of just the two type families the
// source cache needs (array and str) rather than a general-purpose
// implementation — see DESIGN.md for why this one corner of the format
// is hand-rolled instead of library-backed.

const (
	mpFixstrMask  = 0xa0
	mpFixstrLimit = 32
	mpStr8        = 0xd9
	mpStr16       = 0xda
	mpStr32       = 0xdb

	mpFixarrayMask  = 0x90
	mpFixarrayLimit = 16
	mpArray16       = 0xdc
	mpArray32       = 0xdd
)

func encodeMsgpackStringArray(w io.Writer, ss []string) (int, error) {
	n, err := writeArrayHeader(w, len(ss))
	if err != nil {
		return n, err
	}
	for _, s := range ss {
		m, err := writeStringHeader(w, len(s))
		n += m
		if err != nil {
			return n, err
		}
		m, err = io.WriteString(w, s)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func writeArrayHeader(w io.Writer, count int) (int, error) {
	switch {
	case count < mpFixarrayLimit:
		return w.Write([]byte{mpFixarrayMask | byte(count)})
	case count <= 0xffff:
		var buf [3]byte
		buf[0] = mpArray16
		binary.BigEndian.PutUint16(buf[1:], uint16(count))
		return w.Write(buf[:])
	default:
		var buf [5]byte
		buf[0] = mpArray32
		binary.BigEndian.PutUint32(buf[1:], uint32(count))
		return w.Write(buf[:])
	}
}

func writeStringHeader(w io.Writer, length int) (int, error) {
	switch {
	case length < mpFixstrLimit:
		return w.Write([]byte{mpFixstrMask | byte(length)})
	case length <= 0xff:
		return w.Write([]byte{mpStr8, byte(length)})
	case length <= 0xffff:
		var buf [3]byte
		buf[0] = mpStr16
		binary.BigEndian.PutUint16(buf[1:], uint16(length))
		return w.Write(buf[:])
	default:
		var buf [5]byte
		buf[0] = mpStr32
		binary.BigEndian.PutUint32(buf[1:], uint32(length))
		return w.Write(buf[:])
	}
}

func decodeMsgpackStringArray(r io.Reader) ([]string, error) {
	count, err := readArrayHeader(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func readArrayHeader(r io.Reader) (int, error) {
	tag, err := readByte(r)
	if err != nil {
		return 0, err
	}
	switch {
	case tag&0xf0 == mpFixarrayMask:
		return int(tag & 0x0f), nil
	case tag == mpArray16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(buf[:])), nil
	case tag == mpArray32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(buf[:])), nil
	default:
		return 0, fmt.Errorf("cdf: unexpected msgpack tag 0x%02x where an array was expected", tag)
	}
}

func readString(r io.Reader) (string, error) {
	tag, err := readByte(r)
	if err != nil {
		return "", err
	}
	var length int
	switch {
	case tag&0xe0 == mpFixstrMask:
		length = int(tag & 0x1f)
	case tag == mpStr8:
		b, err := readByte(r)
		if err != nil {
			return "", err
		}
		length = int(b)
	case tag == mpStr16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return "", err
		}
		length = int(binary.BigEndian.Uint16(buf[:]))
	case tag == mpStr32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return "", err
		}
		length = int(binary.BigEndian.Uint32(buf[:]))
	default:
		return "", fmt.Errorf("cdf: unexpected msgpack tag 0x%02x where a string was expected", tag)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
