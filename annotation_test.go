// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"testing"
)

func TestParseElementValueConst(t *testing.T) {

	f := attrFile(t)

	for _, tag := range []byte{'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's'} {
		value, err := f.parseElementValue(newReader([]byte{tag, 0x00, 0x04}))
		if err != nil {
			t.Fatalf("tag %q: parseElementValue failed, reason: %v", tag, err)
		}
		if value.Tag != tag {
			t.Errorf("tag got %q, want %q", value.Tag, tag)
		}
		cv, ok := value.Value.(*ElementValueConst)
		if !ok {
			t.Fatalf("tag %q: got %T, want *ElementValueConst", tag, value.Value)
		}
		if cv.ConstValueIndex != 4 {
			t.Errorf("index got %d, want 4", cv.ConstValueIndex)
		}
	}
}

func TestParseElementValueEnum(t *testing.T) {

	f := attrFile(t)
	value, err := f.parseElementValue(newReader([]byte{'e', 0x00, 0x02, 0x00, 0x03}))
	if err != nil {
		t.Fatalf("parseElementValue failed, reason: %v", err)
	}
	enum := value.Value.(*ElementValueEnum)
	if enum.TypeNameIndex != 2 || enum.ConstNameIndex != 3 {
		t.Errorf("got %+v", enum)
	}
}

func TestParseElementValueClass(t *testing.T) {

	f := attrFile(t)
	value, err := f.parseElementValue(newReader([]byte{'c', 0x00, 0x03}))
	if err != nil {
		t.Fatalf("parseElementValue failed, reason: %v", err)
	}
	class := value.Value.(*ElementValueClass)
	if class.ClassInfoIndex != 3 {
		t.Errorf("got %+v", class)
	}
}

func TestParseElementValueNestedAnnotation(t *testing.T) {

	f := attrFile(t)

	// @Outer(v = @Inner) with both type descriptors pointing at Utf8 2.
	b := &classBuilder{}
	b.u8('@')
	b.u16(2) // nested annotation type
	b.u16(1) // one pair
	b.u16(3) // element name
	b.u8('@')
	b.u16(2) // doubly nested annotation type
	b.u16(0) // no pairs

	value, err := f.parseElementValue(newReader(b.bytes()))
	if err != nil {
		t.Fatalf("parseElementValue failed, reason: %v", err)
	}
	nested := value.Value.(*ElementValueAnnotation).Annotation
	if nested.TypeIndex != 2 || len(nested.ElementValuePairs) != 1 {
		t.Fatalf("got %+v", nested)
	}
	inner := nested.ElementValuePairs[0].Value.Value.(*ElementValueAnnotation).Annotation
	if inner.TypeIndex != 2 || len(inner.ElementValuePairs) != 0 {
		t.Errorf("got %+v", inner)
	}
}

func TestParseElementValueArray(t *testing.T) {

	f := attrFile(t)

	b := &classBuilder{}
	b.u8('[')
	b.u16(2)
	b.u8('I').u16(4)
	b.u8('s').u16(2)

	value, err := f.parseElementValue(newReader(b.bytes()))
	if err != nil {
		t.Fatalf("parseElementValue failed, reason: %v", err)
	}
	array := value.Value.(*ElementValueArray)
	if len(array.Values) != 2 {
		t.Fatalf("got %d values, want 2", len(array.Values))
	}
	if array.Values[0].Tag != 'I' || array.Values[1].Tag != 's' {
		t.Errorf("tags got %q/%q", array.Values[0].Tag, array.Values[1].Tag)
	}
}

func TestParseElementValueUnknownTag(t *testing.T) {

	f := attrFile(t)
	_, err := f.parseElementValue(newReader([]byte{'x', 0x00, 0x01}))
	if !errors.Is(err, ErrUnknownAnnotationValueTag) {
		t.Errorf("got %v, want ErrUnknownAnnotationValueTag", err)
	}
}

func TestResolveRuntimeVisibleAnnotations(t *testing.T) {

	// @Foo(bar = 42)
	b := &classBuilder{}
	b.u16(1) // one annotation
	b.u16(2) // type -> Utf8 "Foo"
	b.u16(1) // one pair
	b.u16(3) // name -> Utf8 "bar"
	b.u8('I').u16(4)

	info, err := resolve(t, attrFile(t), AttrRuntimeVisibleAnnotations, b.bytes())
	if err != nil {
		t.Fatalf("resolve failed, reason: %v", err)
	}
	annotations := info.(*RuntimeVisibleAnnotationsAttr).Annotations
	if len(annotations) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annotations))
	}
	pair := annotations[0].ElementValuePairs[0]
	if pair.ElementNameIndex != 3 {
		t.Errorf("element name got %d, want 3", pair.ElementNameIndex)
	}
}

func TestResolveParameterAnnotations(t *testing.T) {

	// Two parameters, the first annotated with @Foo, the second bare. The
	// outer count is a single byte.
	b := &classBuilder{}
	b.u8(2)
	b.u16(1).u16(2).u16(0)
	b.u16(0)

	info, err := resolve(t, attrFile(t), AttrRuntimeVisibleParameterAnnotations, b.bytes())
	if err != nil {
		t.Fatalf("resolve failed, reason: %v", err)
	}
	parameters := info.(*RuntimeVisibleParameterAnnotationsAttr).ParameterAnnotations
	if len(parameters) != 2 {
		t.Fatalf("got %d parameters, want 2", len(parameters))
	}
	if len(parameters[0]) != 1 || len(parameters[1]) != 0 {
		t.Errorf("got %d/%d annotations", len(parameters[0]), len(parameters[1]))
	}
}

func TestResolveAnnotationDefault(t *testing.T) {

	info, err := resolve(t, attrFile(t), AttrAnnotationDefault, []byte{'s', 0x00, 0x02})
	if err != nil {
		t.Fatalf("resolve failed, reason: %v", err)
	}
	def := info.(*AnnotationDefaultAttr)
	if def.DefaultValue.Tag != 's' {
		t.Errorf("tag got %q, want 's'", def.DefaultValue.Tag)
	}
}
