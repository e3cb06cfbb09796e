// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"fmt"
)

// Annotation element value tags. Primitive tags double as field descriptor
// characters.
const (
	ElementTagByte       = 'B'
	ElementTagChar       = 'C'
	ElementTagDouble     = 'D'
	ElementTagFloat      = 'F'
	ElementTagInt        = 'I'
	ElementTagLong       = 'J'
	ElementTagShort      = 'S'
	ElementTagBoolean    = 'Z'
	ElementTagString     = 's'
	ElementTagEnum       = 'e'
	ElementTagClass      = 'c'
	ElementTagAnnotation = '@'
	ElementTagArray      = '['
)

// Errors
var (
	// ErrUnknownAnnotationValueTag is returned for an element value tag
	// outside the recognized set.
	ErrUnknownAnnotationValueTag = errors.New("unknown annotation element value tag")
)

// Annotation is one annotation instance. TypeIndex references the Utf8
// field descriptor of the annotation type.
type Annotation struct {
	TypeIndex         uint16                       `json:"type_index"`
	ElementValuePairs []AnnotationElementValuePair `json:"element_value_pairs"`
}

// AnnotationElementValuePair binds an element name to its value.
type AnnotationElementValuePair struct {
	ElementNameIndex uint16                 `json:"element_name_index"`
	Value            AnnotationElementValue `json:"value"`
}

// AnnotationElementValue is the value side of an element-value pair, a
// tagged union over primitives, enums, classes, nested annotations and
// arrays.
type AnnotationElementValue struct {
	Tag   uint8        `json:"tag"`
	Value ElementValue `json:"value"`
}

// ElementValue is implemented by the five element value shapes.
type ElementValue interface {
	isElementValue()
}

// ElementValueConst references a primitive or String constant in the pool.
type ElementValueConst struct {
	ConstValueIndex uint16 `json:"const_value_index"`
}

// ElementValueEnum references an enum constant by type and name.
type ElementValueEnum struct {
	TypeNameIndex  uint16 `json:"type_name_index"`
	ConstNameIndex uint16 `json:"const_name_index"`
}

// ElementValueClass references a class literal by its descriptor.
type ElementValueClass struct {
	ClassInfoIndex uint16 `json:"class_info_index"`
}

// ElementValueAnnotation nests another annotation.
type ElementValueAnnotation struct {
	Annotation *Annotation `json:"annotation"`
}

// ElementValueArray holds an ordered sequence of element values.
type ElementValueArray struct {
	Values []AnnotationElementValue `json:"values"`
}

func (*ElementValueConst) isElementValue()      {}
func (*ElementValueEnum) isElementValue()       {}
func (*ElementValueClass) isElementValue()      {}
func (*ElementValueAnnotation) isElementValue() {}
func (*ElementValueArray) isElementValue()      {}

// parseAnnotations reads a count followed by that many annotations.
func (f *File) parseAnnotations(r *reader) ([]Annotation, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	annotations := make([]Annotation, 0, count)
	for i := uint16(0); i < count; i++ {
		annotation, err := f.parseAnnotation(r)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		annotations = append(annotations, annotation)
	}
	return annotations, nil
}

// parseParameterAnnotations reads the per-parameter annotation table. The
// outer count is a single byte.
func (f *File) parseParameterAnnotations(r *reader) ([][]Annotation, error) {
	count, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	parameters := make([][]Annotation, 0, count)
	for i := uint8(0); i < count; i++ {
		annotations, err := f.parseAnnotations(r)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		parameters = append(parameters, annotations)
	}
	return parameters, nil
}

func (f *File) parseAnnotation(r *reader) (Annotation, error) {
	var annotation Annotation

	typeIndex, err := r.ReadUint16()
	if err != nil {
		return annotation, err
	}
	if err = f.ConstantPool.Validate(typeIndex, TagUtf8); err != nil {
		return annotation, err
	}
	annotation.TypeIndex = typeIndex

	count, err := r.ReadUint16()
	if err != nil {
		return annotation, err
	}
	annotation.ElementValuePairs = make([]AnnotationElementValuePair, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return annotation, err
		}
		if err = f.ConstantPool.Validate(nameIndex, TagUtf8); err != nil {
			return annotation, err
		}
		value, err := f.parseElementValue(r)
		if err != nil {
			return annotation, err
		}
		annotation.ElementValuePairs = append(annotation.ElementValuePairs,
			AnnotationElementValuePair{ElementNameIndex: nameIndex, Value: value})
	}
	return annotation, nil
}

// parseElementValue decodes one element value. A single ASCII tag
// character picks the layout. Annotation tags recurse, array tags recurse
// per element; both consume input from a bounded payload so recursion
// terminates.
func (f *File) parseElementValue(r *reader) (AnnotationElementValue, error) {
	var value AnnotationElementValue

	tag, err := r.ReadUint8()
	if err != nil {
		return value, err
	}
	value.Tag = tag

	switch tag {
	case ElementTagByte, ElementTagChar, ElementTagDouble, ElementTagFloat,
		ElementTagInt, ElementTagLong, ElementTagShort, ElementTagBoolean,
		ElementTagString:
		index, err := r.ReadUint16()
		if err != nil {
			return value, err
		}
		if err := f.ConstantPool.validateAny(index); err != nil {
			return value, err
		}
		value.Value = &ElementValueConst{ConstValueIndex: index}

	case ElementTagEnum:
		typeNameIndex, err := r.ReadUint16()
		if err != nil {
			return value, err
		}
		if err = f.ConstantPool.Validate(typeNameIndex, TagUtf8); err != nil {
			return value, err
		}
		constNameIndex, err := r.ReadUint16()
		if err != nil {
			return value, err
		}
		if err = f.ConstantPool.Validate(constNameIndex, TagUtf8); err != nil {
			return value, err
		}
		value.Value = &ElementValueEnum{
			TypeNameIndex:  typeNameIndex,
			ConstNameIndex: constNameIndex,
		}

	case ElementTagClass:
		index, err := r.ReadUint16()
		if err != nil {
			return value, err
		}
		if err = f.ConstantPool.Validate(index, TagUtf8); err != nil {
			return value, err
		}
		value.Value = &ElementValueClass{ClassInfoIndex: index}

	case ElementTagAnnotation:
		annotation, err := f.parseAnnotation(r)
		if err != nil {
			return value, err
		}
		value.Value = &ElementValueAnnotation{Annotation: &annotation}

	case ElementTagArray:
		count, err := r.ReadUint16()
		if err != nil {
			return value, err
		}
		values := make([]AnnotationElementValue, 0, count)
		for i := uint16(0); i < count; i++ {
			element, err := f.parseElementValue(r)
			if err != nil {
				return value, err
			}
			values = append(values, element)
		}
		value.Value = &ElementValueArray{Values: values}

	default:
		return value, fmt.Errorf("%w: %q", ErrUnknownAnnotationValueTag, tag)
	}

	return value, nil
}
