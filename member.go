// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "fmt"

// Field access and property flags.
const (
	FieldAccPublic    = 0x0001
	FieldAccPrivate   = 0x0002
	FieldAccProtected = 0x0004
	FieldAccStatic    = 0x0008
	FieldAccFinal     = 0x0010
	FieldAccVolatile  = 0x0040
	FieldAccTransient = 0x0080
	FieldAccSynthetic = 0x1000
	FieldAccEnum      = 0x4000
)

// Method access and property flags.
const (
	MethodAccPublic       = 0x0001
	MethodAccPrivate      = 0x0002
	MethodAccProtected    = 0x0004
	MethodAccStatic       = 0x0008
	MethodAccFinal        = 0x0010
	MethodAccSynchronized = 0x0020
	MethodAccBridge       = 0x0040
	MethodAccVarargs      = 0x0080
	MethodAccNative       = 0x0100
	MethodAccAbstract     = 0x0400
	MethodAccStrict       = 0x0800
	MethodAccSynthetic    = 0x1000
)

// FieldInfo describes one field of the class.
type FieldInfo struct {
	AccessFlags     uint16          `json:"access_flags"`
	NameIndex       uint16          `json:"name_index"`
	DescriptorIndex uint16          `json:"descriptor_index"`
	Attributes      []AttributeInfo `json:"attributes"`
}

// MethodInfo describes one method of the class, constructors and the class
// initializer included.
type MethodInfo struct {
	AccessFlags     uint16          `json:"access_flags"`
	NameIndex       uint16          `json:"name_index"`
	DescriptorIndex uint16          `json:"descriptor_index"`
	Attributes      []AttributeInfo `json:"attributes"`
}

// Fields and methods share one layout in the file: access flags, a name, a
// descriptor and an attribute table.
func (f *File) parseMember() (uint16, uint16, uint16, []AttributeInfo, error) {
	accessFlags, err := f.r.ReadUint16()
	if err != nil {
		return 0, 0, 0, nil, err
	}

	nameIndex, err := f.r.ReadUint16()
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if err = f.ConstantPool.Validate(nameIndex, TagUtf8); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("name: %w", err)
	}

	descriptorIndex, err := f.r.ReadUint16()
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if err = f.ConstantPool.Validate(descriptorIndex, TagUtf8); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("descriptor: %w", err)
	}

	attributes, err := f.parseAttributes(f.r)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	return accessFlags, nameIndex, descriptorIndex, attributes, nil
}

// ParseFields parses the field table.
func (f *File) ParseFields() error {
	count, err := f.r.ReadUint16()
	if err != nil {
		return err
	}

	f.Fields = make([]FieldInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, nameIndex, descriptorIndex, attributes, err := f.parseMember()
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		f.Fields = append(f.Fields, FieldInfo{
			AccessFlags:     accessFlags,
			NameIndex:       nameIndex,
			DescriptorIndex: descriptorIndex,
			Attributes:      attributes,
		})
	}
	return nil
}

// ParseMethods parses the method table.
func (f *File) ParseMethods() error {
	count, err := f.r.ReadUint16()
	if err != nil {
		return err
	}

	f.Methods = make([]MethodInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, nameIndex, descriptorIndex, attributes, err := f.parseMember()
		if err != nil {
			return fmt.Errorf("method %d: %w", i, err)
		}
		f.Methods = append(f.Methods, MethodInfo{
			AccessFlags:     accessFlags,
			NameIndex:       nameIndex,
			DescriptorIndex: descriptorIndex,
			Attributes:      attributes,
		})
	}
	return nil
}

// Name returns the field name from the pool.
func (fi *FieldInfo) Name(cp *ConstantPool) (string, error) {
	return cp.Utf8At(fi.NameIndex)
}

// Descriptor returns the field descriptor from the pool.
func (fi *FieldInfo) Descriptor(cp *ConstantPool) (string, error) {
	return cp.Utf8At(fi.DescriptorIndex)
}

// Name returns the method name from the pool.
func (mi *MethodInfo) Name(cp *ConstantPool) (string, error) {
	return cp.Utf8At(mi.NameIndex)
}

// Descriptor returns the method descriptor from the pool.
func (mi *MethodInfo) Descriptor(cp *ConstantPool) (string, error) {
	return cp.Utf8At(mi.DescriptorIndex)
}

// Code returns the method's resolved Code attribute, or nil for abstract
// and native methods.
func (mi *MethodInfo) Code() *CodeAttr {
	for i := range mi.Attributes {
		if code, ok := mi.Attributes[i].Info.(*CodeAttr); ok {
			return code
		}
	}
	return nil
}
