// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"testing"
)

// richClass builds a class exercising fields, methods, Code with nested
// attributes, a StackMapTable and class level attributes:
//
//	 1: Class -> 2                "Foo"
//	 2: Utf8  "Foo"
//	 3: Class -> 4                "java/lang/Object"
//	 4: Utf8  "java/lang/Object"
//	 5: Utf8  "value"
//	 6: Utf8  "I"
//	 7: Utf8  "ConstantValue"
//	 8: Integer 42
//	 9: Utf8  "run"
//	10: Utf8  "()V"
//	11: Utf8  "Code"
//	12: Utf8  "LineNumberTable"
//	13: Utf8  "StackMapTable"
//	14: Utf8  "SourceFile"
//	15: Utf8  "Foo.java"
func richClass() []byte {
	b := &classBuilder{}
	b.u32(Magic)
	b.u16(0).u16(MajorVersionJava8)
	b.u16(16)
	b.u8(uint8(TagClass)).u16(2)
	b.utf8("Foo")
	b.u8(uint8(TagClass)).u16(4)
	b.utf8("java/lang/Object")
	b.utf8("value")
	b.utf8("I")
	b.utf8(AttrConstantValue)
	b.u8(uint8(TagInteger)).u32(42)
	b.utf8("run")
	b.utf8("()V")
	b.utf8(AttrCode)
	b.utf8(AttrLineNumberTable)
	b.utf8(AttrStackMapTable)
	b.utf8(AttrSourceFile)
	b.utf8("Foo.java")

	b.u16(AccPublic | AccSuper)
	b.u16(1).u16(3)
	b.u16(0)

	// One static final int field with a ConstantValue.
	b.u16(1)
	b.u16(FieldAccPublic | FieldAccStatic | FieldAccFinal)
	b.u16(5).u16(6)
	b.u16(1)
	b.u16(7).u32(2).u16(8)

	// One method with a Code attribute holding a LineNumberTable and a
	// StackMapTable.
	b.u16(1)
	b.u16(MethodAccPublic)
	b.u16(9).u16(10)
	b.u16(1)
	b.u16(11)
	// Code payload: 2+2+4+3 + 2 + 2 + (2+4+6) + (2+4+6) bytes.
	b.u32(2 + 2 + 4 + 3 + 2 + 2 + 12 + 12)
	b.u16(2).u16(1)
	b.u32(3).raw(0x03, 0x3B, 0xB1)
	b.u16(0) // no exception handlers
	b.u16(2) // two nested attributes
	b.u16(12).u32(6)
	b.u16(1).u16(0).u16(7)
	b.u16(13).u32(6)
	b.u16(1)         // one frame
	b.u8(64)         // same locals, one stack item
	b.u8(ItemObject) // Object -> Class 1
	b.u16(1)

	// Class level SourceFile.
	b.u16(1)
	b.u16(14).u32(2).u16(15)
	return b.bytes()
}

func TestWriterRoundTrip(t *testing.T) {

	tests := []struct {
		name string
		data []byte
	}{
		{"minimal class", minimalClass().bytes()},
		{"rich class", richClass()},
		{"class with overlay", append(minimalClass().bytes(), 0xCA, 0xFE)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseBytes(t, tt.data)
			if err != nil {
				t.Fatalf("Parse failed, reason: %v", err)
			}

			out, err := f.Bytes()
			if err != nil {
				t.Fatalf("Bytes failed, reason: %v", err)
			}
			if !bytes.Equal(out, tt.data) {
				t.Errorf("round trip diverged:\n got %v\nwant %v", out, tt.data)
			}
		})
	}
}

func TestWriterRoundTripTwoSlotPool(t *testing.T) {

	// Long and Double entries must keep their two slot accounting on the
	// way out.
	b := &classBuilder{}
	b.u32(Magic).u16(0).u16(MajorVersionJava8)
	b.u16(9)
	b.u8(uint8(TagClass)).u16(2)                                     // 1
	b.utf8("Foo")                                                    // 2
	b.u8(uint8(TagClass)).u16(4)                                     // 3
	b.utf8("java/lang/Object")                                       // 4
	b.u8(uint8(TagLong)).u32(0).u32(1)                               // 5 and 6
	b.u8(uint8(TagDouble)).u32(0x40090000).u32(0)                    // 7 and 8
	b.u16(AccPublic | AccSuper)
	b.u16(1).u16(3)
	b.u16(0).u16(0).u16(0).u16(0)

	data := b.bytes()
	f, err := parseBytes(t, data)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed, reason: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip diverged:\n got %v\nwant %v", out, data)
	}
}

func TestWriterRoundTripModifiedUTF8(t *testing.T) {

	// A pool string with a NUL and a supplementary plane character.
	b := &classBuilder{}
	b.u32(Magic).u16(0).u16(MajorVersionJava8)
	b.u16(6)
	b.u8(uint8(TagClass)).u16(2)
	b.utf8("Foo")
	b.u8(uint8(TagClass)).u16(4)
	b.utf8("java/lang/Object")
	b.u8(uint8(TagUtf8)).u16(8)
	b.raw(0xC0, 0x80, 0xED, 0xA0, 0xB4, 0xED, 0xB4, 0x9E)
	b.u16(AccPublic | AccSuper)
	b.u16(1).u16(3)
	b.u16(0).u16(0).u16(0).u16(0)

	data := b.bytes()
	f, err := parseBytes(t, data)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed, reason: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip diverged:\n got %v\nwant %v", out, data)
	}
}
