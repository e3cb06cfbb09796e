// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderReads(t *testing.T) {

	r := newReader([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x37, 0x01})

	magic, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32 failed, reason: %v", err)
	}
	if magic != 0xCAFEBABE {
		t.Errorf("ReadUint32 got 0x%08X, want 0xCAFEBABE", magic)
	}

	last, err := r.LastUint32()
	if err != nil {
		t.Fatalf("LastUint32 failed, reason: %v", err)
	}
	if last != magic {
		t.Errorf("LastUint32 got 0x%08X, want 0x%08X", last, magic)
	}
	if r.Offset() != 4 {
		t.Errorf("LastUint32 moved the cursor to %d", r.Offset())
	}

	major, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed, reason: %v", err)
	}
	if major != 0x37 {
		t.Errorf("ReadUint16 got 0x%04X, want 0x0037", major)
	}
	if last16, _ := r.LastUint16(); last16 != 0x37 {
		t.Errorf("LastUint16 got 0x%04X, want 0x0037", last16)
	}

	b, err := r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed, reason: %v", err)
	}
	if b != 0x01 {
		t.Errorf("ReadUint8 got 0x%02X, want 0x01", b)
	}
	if last8, _ := r.LastUint8(); last8 != 0x01 {
		t.Errorf("LastUint8 got 0x%02X, want 0x01", last8)
	}

	if r.Remaining() != 0 {
		t.Errorf("Remaining got %d, want 0", r.Remaining())
	}
}

func TestReaderTruncated(t *testing.T) {

	tests := []struct {
		name string
		read func(r *reader) error
		data []byte
	}{
		{"uint8 on empty", func(r *reader) error { _, err := r.ReadUint8(); return err }, nil},
		{"uint16 on one byte", func(r *reader) error { _, err := r.ReadUint16(); return err }, []byte{1}},
		{"uint32 on three bytes", func(r *reader) error { _, err := r.ReadUint32(); return err }, []byte{1, 2, 3}},
		{"bytes past end", func(r *reader) error { _, err := r.ReadBytes(4); return err }, []byte{1, 2, 3}},
		{"last uint16 before any read", func(r *reader) error { _, err := r.LastUint16(); return err }, []byte{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(newReader(tt.data))
			if !errors.Is(err, ErrTruncatedRead) {
				t.Errorf("got %v, want ErrTruncatedRead", err)
			}
		})
	}
}

func TestReaderBytes(t *testing.T) {

	r := newReader([]byte{0x00, 0x02, 0x41, 0x42, 0x43})
	count, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed, reason: %v", err)
	}
	got, err := r.ReadBytes(uint32(count))
	if err != nil {
		t.Fatalf("ReadBytes failed, reason: %v", err)
	}
	if !bytes.Equal(got, []byte{0x41, 0x42}) {
		t.Errorf("ReadBytes got %v, want [0x41 0x42]", got)
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining got %d, want 1", r.Remaining())
	}
}
