// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"fmt"
)

// ConstantPoolTag identifies the kind of a constant pool entry.
type ConstantPoolTag uint8

// Constant pool tags as defined by the JVM specification.
const (
	TagUtf8               ConstantPoolTag = 1
	TagInteger            ConstantPoolTag = 3
	TagFloat              ConstantPoolTag = 4
	TagLong               ConstantPoolTag = 5
	TagDouble             ConstantPoolTag = 6
	TagClass              ConstantPoolTag = 7
	TagString             ConstantPoolTag = 8
	TagFieldref           ConstantPoolTag = 9
	TagMethodref          ConstantPoolTag = 10
	TagInterfaceMethodref ConstantPoolTag = 11
	TagNameAndType        ConstantPoolTag = 12
	TagMethodHandle       ConstantPoolTag = 15
	TagMethodType         ConstantPoolTag = 16
	TagDynamic            ConstantPoolTag = 17
	TagInvokeDynamic      ConstantPoolTag = 18
	TagModule             ConstantPoolTag = 19
	TagPackage            ConstantPoolTag = 20
)

// Method handle reference kinds.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Errors
var (
	// ErrUnknownConstantPoolTag is returned when a constant pool entry
	// carries a tag byte outside the set defined by the JVM specification.
	ErrUnknownConstantPoolTag = errors.New("unknown constant pool tag")

	// ErrPoolIndexOutOfBounds is returned when a constant pool index is 0,
	// larger than the pool, or lands on the unusable slot that follows a
	// Long or Double entry.
	ErrPoolIndexOutOfBounds = errors.New("constant pool index out of bounds")

	// ErrPoolKindMismatch is returned when a constant pool index references
	// an entry of the wrong kind.
	ErrPoolKindMismatch = errors.New("constant pool entry kind mismatch")

	// ErrInvalidMethodHandleKind is returned when a MethodHandle entry
	// carries a reference kind outside 1..9.
	ErrInvalidMethodHandleKind = errors.New("invalid method handle reference kind")
)

func (tag ConstantPoolTag) String() string {
	tagMap := map[ConstantPoolTag]string{
		TagUtf8:               "Utf8",
		TagInteger:            "Integer",
		TagFloat:              "Float",
		TagLong:               "Long",
		TagDouble:             "Double",
		TagClass:              "Class",
		TagString:             "String",
		TagFieldref:           "Fieldref",
		TagMethodref:          "Methodref",
		TagInterfaceMethodref: "InterfaceMethodref",
		TagNameAndType:        "NameAndType",
		TagMethodHandle:       "MethodHandle",
		TagMethodType:         "MethodType",
		TagDynamic:            "Dynamic",
		TagInvokeDynamic:      "InvokeDynamic",
		TagModule:             "Module",
		TagPackage:            "Package",
	}

	if name, ok := tagMap[tag]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(tag))
}

// ConstantPoolEntry is implemented by every constant pool entry kind.
type ConstantPoolEntry interface {
	Tag() ConstantPoolTag
}

// ConstantUtf8 holds a string decoded from its modified UTF-8 encoding.
type ConstantUtf8 struct {
	Value string `json:"value"`
}

// ConstantInteger holds the raw big-endian bytes of an int constant.
type ConstantInteger struct {
	Bytes uint32 `json:"bytes"`
}

// ConstantFloat holds the raw IEEE 754 bits of a float constant.
type ConstantFloat struct {
	Bytes uint32 `json:"bytes"`
}

// ConstantLong holds the raw bytes of a long constant. The entry occupies
// two constant pool slots.
type ConstantLong struct {
	HighBytes uint32 `json:"high_bytes"`
	LowBytes  uint32 `json:"low_bytes"`
}

// ConstantDouble holds the raw IEEE 754 bits of a double constant. The
// entry occupies two constant pool slots.
type ConstantDouble struct {
	HighBytes uint32 `json:"high_bytes"`
	LowBytes  uint32 `json:"low_bytes"`
}

// ConstantClass represents a class or interface reference.
type ConstantClass struct {
	NameIndex uint16 `json:"name_index"`
}

// ConstantString represents a string literal.
type ConstantString struct {
	StringIndex uint16 `json:"string_index"`
}

// ConstantFieldref represents a field reference.
type ConstantFieldref struct {
	ClassIndex       uint16 `json:"class_index"`
	NameAndTypeIndex uint16 `json:"name_and_type_index"`
}

// ConstantMethodref represents a class method reference.
type ConstantMethodref struct {
	ClassIndex       uint16 `json:"class_index"`
	NameAndTypeIndex uint16 `json:"name_and_type_index"`
}

// ConstantInterfaceMethodref represents an interface method reference.
type ConstantInterfaceMethodref struct {
	ClassIndex       uint16 `json:"class_index"`
	NameAndTypeIndex uint16 `json:"name_and_type_index"`
}

// ConstantNameAndType represents a name and descriptor pair.
type ConstantNameAndType struct {
	NameIndex       uint16 `json:"name_index"`
	DescriptorIndex uint16 `json:"descriptor_index"`
}

// ConstantMethodHandle represents a method handle. The kind of the entry
// the reference index points at depends on ReferenceKind, see
// expectedMethodHandleReferent.
type ConstantMethodHandle struct {
	ReferenceKind  uint8  `json:"reference_kind"`
	ReferenceIndex uint16 `json:"reference_index"`
}

// ConstantMethodType represents a method type.
type ConstantMethodType struct {
	DescriptorIndex uint16 `json:"descriptor_index"`
}

// ConstantDynamic represents a dynamically-computed constant.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16 `json:"bootstrap_method_attr_index"`
	NameAndTypeIndex         uint16 `json:"name_and_type_index"`
}

// ConstantInvokeDynamic represents an invokedynamic call site.
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16 `json:"bootstrap_method_attr_index"`
	NameAndTypeIndex         uint16 `json:"name_and_type_index"`
}

// ConstantModule represents a module declaration.
type ConstantModule struct {
	NameIndex uint16 `json:"name_index"`
}

// ConstantPackage represents a package exported or opened by a module.
type ConstantPackage struct {
	NameIndex uint16 `json:"name_index"`
}

// Tag implementations.
func (c *ConstantUtf8) Tag() ConstantPoolTag               { return TagUtf8 }
func (c *ConstantInteger) Tag() ConstantPoolTag            { return TagInteger }
func (c *ConstantFloat) Tag() ConstantPoolTag              { return TagFloat }
func (c *ConstantLong) Tag() ConstantPoolTag               { return TagLong }
func (c *ConstantDouble) Tag() ConstantPoolTag             { return TagDouble }
func (c *ConstantClass) Tag() ConstantPoolTag              { return TagClass }
func (c *ConstantString) Tag() ConstantPoolTag             { return TagString }
func (c *ConstantFieldref) Tag() ConstantPoolTag           { return TagFieldref }
func (c *ConstantMethodref) Tag() ConstantPoolTag          { return TagMethodref }
func (c *ConstantInterfaceMethodref) Tag() ConstantPoolTag { return TagInterfaceMethodref }
func (c *ConstantNameAndType) Tag() ConstantPoolTag        { return TagNameAndType }
func (c *ConstantMethodHandle) Tag() ConstantPoolTag       { return TagMethodHandle }
func (c *ConstantMethodType) Tag() ConstantPoolTag         { return TagMethodType }
func (c *ConstantDynamic) Tag() ConstantPoolTag            { return TagDynamic }
func (c *ConstantInvokeDynamic) Tag() ConstantPoolTag      { return TagInvokeDynamic }
func (c *ConstantModule) Tag() ConstantPoolTag             { return TagModule }
func (c *ConstantPackage) Tag() ConstantPoolTag            { return TagPackage }

// ConstantPool is the 1-indexed table of constants referenced by position
// from everywhere else in the class file. Entries[0] is never used. The
// slot following a Long or Double entry is unusable and holds nil.
type ConstantPool struct {
	Count   uint16              `json:"count"`
	Entries []ConstantPoolEntry `json:"entries"`
}

// At returns the entry at the given 1-based index.
func (cp *ConstantPool) At(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || index >= cp.Count {
		return nil, fmt.Errorf("%w: index %d, pool count %d",
			ErrPoolIndexOutOfBounds, index, cp.Count)
	}
	entry := cp.Entries[index]
	if entry == nil {
		return nil, fmt.Errorf("%w: index %d is the reserved slot after a Long or Double",
			ErrPoolIndexOutOfBounds, index)
	}
	return entry, nil
}

// Validate asserts that the entry at the given 1-based index exists and is
// of the expected kind.
func (cp *ConstantPool) Validate(index uint16, tag ConstantPoolTag) error {
	entry, err := cp.At(index)
	if err != nil {
		return err
	}
	if entry.Tag() != tag {
		return fmt.Errorf("%w: index %d references %s, want %s",
			ErrPoolKindMismatch, index, entry.Tag(), tag)
	}
	return nil
}

// validateOptional is Validate for indices where 0 means absent.
func (cp *ConstantPool) validateOptional(index uint16, tag ConstantPoolTag) error {
	if index == 0 {
		return nil
	}
	return cp.Validate(index, tag)
}

// validateAny asserts only that the index lands on a usable entry.
func (cp *ConstantPool) validateAny(index uint16) error {
	_, err := cp.At(index)
	return err
}

// Utf8At returns the string held by the Utf8 entry at the given index.
func (cp *ConstantPool) Utf8At(index uint16) (string, error) {
	entry, err := cp.At(index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("%w: index %d references %s, want Utf8",
			ErrPoolKindMismatch, index, entry.Tag())
	}
	return utf8.Value, nil
}

// ClassNameAt resolves a Class entry down to its name.
func (cp *ConstantPool) ClassNameAt(index uint16) (string, error) {
	entry, err := cp.At(index)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("%w: index %d references %s, want Class",
			ErrPoolKindMismatch, index, entry.Tag())
	}
	return cp.Utf8At(class.NameIndex)
}

// NameAndTypeAt resolves a NameAndType entry down to its name and
// descriptor strings.
func (cp *ConstantPool) NameAndTypeAt(index uint16) (string, string, error) {
	entry, err := cp.At(index)
	if err != nil {
		return "", "", err
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("%w: index %d references %s, want NameAndType",
			ErrPoolKindMismatch, index, entry.Tag())
	}
	name, err := cp.Utf8At(nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err := cp.Utf8At(nat.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// expectedMethodHandleReferent maps a method handle reference kind to the
// pool entry kind its reference index must point at.
func expectedMethodHandleReferent(kind uint8) (ConstantPoolTag, error) {
	switch {
	case kind >= RefGetField && kind <= RefPutStatic:
		return TagFieldref, nil
	case kind >= RefInvokeVirtual && kind <= RefNewInvokeSpecial:
		return TagMethodref, nil
	case kind == RefInvokeInterface:
		return TagInterfaceMethodref, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidMethodHandleKind, kind)
	}
}

// ParseConstantPool reads the declared entry count and then count-1
// entries. Long and Double entries take up two slots, the skipped slot
// stays nil. Cross-entry references are verified afterwards in
// validateConstantPool, once forward targets exist.
func (f *File) ParseConstantPool() error {
	count, err := f.r.ReadUint16()
	if err != nil {
		return err
	}

	cp := ConstantPool{
		Count:   count,
		Entries: make([]ConstantPoolEntry, count),
	}

	for i := uint16(1); i < count; i++ {
		tag, err := f.r.ReadUint8()
		if err != nil {
			return err
		}

		entry, err := f.parseConstantPoolEntry(ConstantPoolTag(tag))
		if err != nil {
			return fmt.Errorf("constant pool index %d: %w", i, err)
		}
		cp.Entries[i] = entry

		// Long and Double take two slots, the second stays unusable.
		if ConstantPoolTag(tag) == TagLong || ConstantPoolTag(tag) == TagDouble {
			i++
		}
	}

	f.ConstantPool = cp
	return f.validateConstantPool()
}

func (f *File) parseConstantPoolEntry(tag ConstantPoolTag) (ConstantPoolEntry, error) {
	r := f.r

	switch tag {
	case TagUtf8:
		length, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes(uint32(length))
		if err != nil {
			return nil, err
		}
		value, err := DecodeModifiedUTF8(raw)
		if err != nil {
			return nil, err
		}
		return &ConstantUtf8{Value: value}, nil

	case TagInteger:
		bytes, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &ConstantInteger{Bytes: bytes}, nil

	case TagFloat:
		bytes, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &ConstantFloat{Bytes: bytes}, nil

	case TagLong:
		high, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		low, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &ConstantLong{HighBytes: high, LowBytes: low}, nil

	case TagDouble:
		high, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		low, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &ConstantDouble{HighBytes: high, LowBytes: low}, nil

	case TagClass:
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantClass{NameIndex: nameIndex}, nil

	case TagString:
		stringIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantString{StringIndex: stringIndex}, nil

	case TagFieldref:
		classIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil

	case TagMethodref:
		classIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil

	case TagInterfaceMethodref:
		classIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil

	case TagNameAndType:
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		descriptorIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descriptorIndex}, nil

	case TagMethodHandle:
		kind, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if _, err := expectedMethodHandleReferent(kind); err != nil {
			return nil, err
		}
		referenceIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: referenceIndex}, nil

	case TagMethodType:
		descriptorIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodType{DescriptorIndex: descriptorIndex}, nil

	case TagDynamic:
		bootstrapIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantDynamic{
			BootstrapMethodAttrIndex: bootstrapIndex,
			NameAndTypeIndex:         natIndex,
		}, nil

	case TagInvokeDynamic:
		bootstrapIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantInvokeDynamic{
			BootstrapMethodAttrIndex: bootstrapIndex,
			NameAndTypeIndex:         natIndex,
		}, nil

	case TagModule:
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantModule{NameIndex: nameIndex}, nil

	case TagPackage:
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstantPackage{NameIndex: nameIndex}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownConstantPoolTag, uint8(tag))
	}
}

// validateConstantPool checks every reference a pool entry makes into the
// pool itself. Forward references are legal in the file, so this runs only
// after the whole pool is decoded.
func (f *File) validateConstantPool() error {
	cp := &f.ConstantPool

	for i := uint16(1); i < cp.Count; i++ {
		entry := cp.Entries[i]
		if entry == nil {
			continue
		}

		var err error
		switch c := entry.(type) {
		case *ConstantClass:
			err = cp.Validate(c.NameIndex, TagUtf8)
		case *ConstantString:
			err = cp.Validate(c.StringIndex, TagUtf8)
		case *ConstantFieldref:
			if err = cp.Validate(c.ClassIndex, TagClass); err == nil {
				err = cp.Validate(c.NameAndTypeIndex, TagNameAndType)
			}
		case *ConstantMethodref:
			if err = cp.Validate(c.ClassIndex, TagClass); err == nil {
				err = cp.Validate(c.NameAndTypeIndex, TagNameAndType)
			}
		case *ConstantInterfaceMethodref:
			if err = cp.Validate(c.ClassIndex, TagClass); err == nil {
				err = cp.Validate(c.NameAndTypeIndex, TagNameAndType)
			}
		case *ConstantNameAndType:
			if err = cp.Validate(c.NameIndex, TagUtf8); err == nil {
				err = cp.Validate(c.DescriptorIndex, TagUtf8)
			}
		case *ConstantMethodHandle:
			var want ConstantPoolTag
			want, err = expectedMethodHandleReferent(c.ReferenceKind)
			if err == nil {
				err = cp.Validate(c.ReferenceIndex, want)
			}
		case *ConstantMethodType:
			err = cp.Validate(c.DescriptorIndex, TagUtf8)
		case *ConstantDynamic:
			err = cp.Validate(c.NameAndTypeIndex, TagNameAndType)
		case *ConstantInvokeDynamic:
			err = cp.Validate(c.NameAndTypeIndex, TagNameAndType)
		case *ConstantModule:
			err = cp.Validate(c.NameIndex, TagUtf8)
		case *ConstantPackage:
			err = cp.Validate(c.NameIndex, TagUtf8)
		}

		if err != nil {
			return fmt.Errorf("constant pool index %d (%s): %w", i, entry.Tag(), err)
		}
	}

	return nil
}
