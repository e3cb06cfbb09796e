// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"encoding/binary"
	"errors"
)

// Errors
var (
	// ErrTruncatedRead is returned when a read goes beyond the end of the
	// class file image or of the current attribute payload.
	ErrTruncatedRead = errors.New("truncated class file, read beyond end of data")
)

// reader is a position-tracked cursor over an immutable byte slice. All
// multi-byte reads are big-endian as mandated by the class file format.
// An attribute payload gets its own sub-reader so that a malformed payload
// can never consume bytes that belong to a sibling structure.
type reader struct {
	data   []byte
	offset uint32
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

// Len returns the total length of the underlying data.
func (r *reader) Len() uint32 {
	return uint32(len(r.data))
}

// Offset returns the current read position.
func (r *reader) Offset() uint32 {
	return r.offset
}

// Remaining returns the count of bytes not yet consumed.
func (r *reader) Remaining() uint32 {
	return uint32(len(r.data)) - r.offset
}

// ReadUint8 reads an unsigned byte and advances the cursor.
func (r *reader) ReadUint8() (uint8, error) {
	if r.offset+1 > uint32(len(r.data)) {
		return 0, ErrTruncatedRead
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadUint16 reads a big-endian uint16 and advances the cursor.
func (r *reader) ReadUint16() (uint16, error) {
	if r.offset+2 > uint32(len(r.data)) {
		return 0, ErrTruncatedRead
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadUint32 reads a big-endian uint32 and advances the cursor.
func (r *reader) ReadUint32() (uint32, error) {
	if r.offset+4 > uint32(len(r.data)) {
		return 0, ErrTruncatedRead
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// LastUint8 returns the most recently consumed byte without moving the
// cursor. Together with LastUint16/LastUint32 it supports the
// read-a-count-then-parse-that-many idiom without threading the count
// through every call site.
func (r *reader) LastUint8() (uint8, error) {
	if r.offset < 1 {
		return 0, ErrTruncatedRead
	}
	return r.data[r.offset-1], nil
}

// LastUint16 returns the most recently consumed big-endian uint16 without
// moving the cursor.
func (r *reader) LastUint16() (uint16, error) {
	if r.offset < 2 {
		return 0, ErrTruncatedRead
	}
	return binary.BigEndian.Uint16(r.data[r.offset-2:]), nil
}

// LastUint32 returns the most recently consumed big-endian uint32 without
// moving the cursor.
func (r *reader) LastUint32() (uint32, error) {
	if r.offset < 4 {
		return 0, ErrTruncatedRead
	}
	return binary.BigEndian.Uint32(r.data[r.offset-4:]), nil
}

// ReadBytes consumes n bytes and returns them as a sub-slice of the
// underlying data. The caller must not mutate the result.
func (r *reader) ReadBytes(n uint32) ([]byte, error) {
	// The declared length is attacker-controlled, guard the addition
	// against wrap-around.
	end := uint64(r.offset) + uint64(n)
	if end > uint64(len(r.data)) {
		return nil, ErrTruncatedRead
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}
