// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"testing"
)

func TestParseStackMapFrameDispatch(t *testing.T) {

	f := attrFile(t)

	tests := []struct {
		name string
		in   []byte
		want interface{}
	}{
		{"same frame low bound", []byte{0}, &SameFrame{Type: 0}},
		{"same frame high bound", []byte{63}, &SameFrame{Type: 63}},
		{"same locals one item low bound", []byte{64, ItemInteger},
			&SameLocals1StackItemFrame{Type: 64, Stack: VerificationTypeInfo{Tag: ItemInteger}}},
		{"same locals one item high bound", []byte{127, ItemNull},
			&SameLocals1StackItemFrame{Type: 127, Stack: VerificationTypeInfo{Tag: ItemNull}}},
		{"same locals extended", []byte{247, 0x00, 0x10, ItemLong},
			&SameLocals1StackItemFrameExtended{Type: 247, OffsetDelta: 16,
				Stack: VerificationTypeInfo{Tag: ItemLong}}},
		{"chop low bound", []byte{248, 0x00, 0x08}, &ChopFrame{Type: 248, OffsetDelta: 8}},
		{"chop high bound", []byte{250, 0x00, 0x08}, &ChopFrame{Type: 250, OffsetDelta: 8}},
		{"same frame extended", []byte{251, 0x00, 0x20}, &SameFrameExtended{Type: 251, OffsetDelta: 32}},
		{"append one local", []byte{252, 0x00, 0x01, ItemFloat},
			&AppendFrame{Type: 252, OffsetDelta: 1,
				Locals: []VerificationTypeInfo{{Tag: ItemFloat}}}},
		{"append three locals", []byte{254, 0x00, 0x01, ItemTop, ItemDouble, ItemUninitializedThis},
			&AppendFrame{Type: 254, OffsetDelta: 1,
				Locals: []VerificationTypeInfo{{Tag: ItemTop}, {Tag: ItemDouble}, {Tag: ItemUninitializedThis}}}},
		{"full frame", []byte{255, 0x00, 0x02, 0x00, 0x01, ItemInteger, 0x00, 0x01, ItemNull},
			&FullFrame{Type: 255, OffsetDelta: 2,
				Locals: []VerificationTypeInfo{{Tag: ItemInteger}},
				Stack:  []VerificationTypeInfo{{Tag: ItemNull}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := f.parseStackMapFrame(newReader(tt.in))
			if err != nil {
				t.Fatalf("parseStackMapFrame failed, reason: %v", err)
			}

			switch want := tt.want.(type) {
			case *SameFrame:
				got := frame.(*SameFrame)
				if *got != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *SameLocals1StackItemFrame:
				got := frame.(*SameLocals1StackItemFrame)
				if *got != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *SameLocals1StackItemFrameExtended:
				got := frame.(*SameLocals1StackItemFrameExtended)
				if *got != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *ChopFrame:
				got := frame.(*ChopFrame)
				if *got != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *SameFrameExtended:
				got := frame.(*SameFrameExtended)
				if *got != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *AppendFrame:
				got := frame.(*AppendFrame)
				if got.Type != want.Type || got.OffsetDelta != want.OffsetDelta ||
					len(got.Locals) != len(want.Locals) {
					t.Fatalf("got %+v, want %+v", got, want)
				}
				for i := range want.Locals {
					if got.Locals[i] != want.Locals[i] {
						t.Errorf("local %d got %+v, want %+v", i, got.Locals[i], want.Locals[i])
					}
				}
			case *FullFrame:
				got := frame.(*FullFrame)
				if got.Type != want.Type || got.OffsetDelta != want.OffsetDelta ||
					len(got.Locals) != len(want.Locals) || len(got.Stack) != len(want.Stack) {
					t.Fatalf("got %+v, want %+v", got, want)
				}
			}
		})
	}
}

func TestParseStackMapFrameReserved(t *testing.T) {

	f := attrFile(t)
	for _, frameType := range []byte{128, 200, 246} {
		_, err := f.parseStackMapFrame(newReader([]byte{frameType}))
		if !errors.Is(err, ErrUnknownFrameType) {
			t.Errorf("frame type %d: got %v, want ErrUnknownFrameType", frameType, err)
		}
	}
}

func TestParseVerificationTypeInfoObject(t *testing.T) {

	f := attrFile(t)

	// Object items reference a Class entry.
	frame, err := f.parseStackMapFrame(newReader([]byte{64, ItemObject, 0x00, 0x01}))
	if err != nil {
		t.Fatalf("parseStackMapFrame failed, reason: %v", err)
	}
	stack := frame.(*SameLocals1StackItemFrame).Stack
	if stack.Tag != ItemObject || stack.ConstantPoolIndex != 1 {
		t.Errorf("got %+v", stack)
	}

	// Tag 3 is Double, no trailing operand.
	frame, err = f.parseStackMapFrame(newReader([]byte{64, ItemDouble}))
	if err != nil {
		t.Fatalf("parseStackMapFrame failed, reason: %v", err)
	}
	if frame.(*SameLocals1StackItemFrame).Stack.Tag != ItemDouble {
		t.Errorf("got %+v", frame)
	}

	// An Object item referencing a non Class entry fails.
	_, err = f.parseStackMapFrame(newReader([]byte{64, ItemObject, 0x00, 0x02}))
	if !errors.Is(err, ErrPoolKindMismatch) {
		t.Errorf("got %v, want ErrPoolKindMismatch", err)
	}
}

func TestParseVerificationTypeInfoUninitialized(t *testing.T) {

	f := attrFile(t)
	frame, err := f.parseStackMapFrame(newReader([]byte{64, ItemUninitialized, 0x00, 0x2A}))
	if err != nil {
		t.Fatalf("parseStackMapFrame failed, reason: %v", err)
	}
	stack := frame.(*SameLocals1StackItemFrame).Stack
	if stack.Offset != 42 {
		t.Errorf("offset got %d, want 42", stack.Offset)
	}
}

func TestParseVerificationTypeInfoUnknownTag(t *testing.T) {

	f := attrFile(t)
	_, err := f.parseStackMapFrame(newReader([]byte{64, 9}))
	if !errors.Is(err, ErrUnknownVerificationTag) {
		t.Errorf("got %v, want ErrUnknownVerificationTag", err)
	}
}

func TestResolveStackMapTable(t *testing.T) {

	payload := &classBuilder{}
	payload.u16(2)
	payload.u8(0)                    // same frame
	payload.u8(64).u8(ItemInteger)   // same locals, one int on the stack

	info, err := resolve(t, attrFile(t), AttrStackMapTable, payload.bytes())
	if err != nil {
		t.Fatalf("resolve failed, reason: %v", err)
	}
	smt := info.(*StackMapTableAttr)
	if len(smt.Entries) != 2 {
		t.Fatalf("entries got %d, want 2", len(smt.Entries))
	}
	if smt.Entries[0].FrameType() != 0 || smt.Entries[1].FrameType() != 64 {
		t.Errorf("frame types got %d/%d", smt.Entries[0].FrameType(), smt.Entries[1].FrameType())
	}
}
