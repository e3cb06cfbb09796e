// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"fmt"
)

const (
	// Magic is the signature every class file starts with.
	Magic = 0xCAFEBABE
)

// Major version numbers emitted by javac.
const (
	MajorVersionJava5  = 49
	MajorVersionJava6  = 50
	MajorVersionJava7  = 51
	MajorVersionJava8  = 52
	MajorVersionJava9  = 53
	MajorVersionJava10 = 54
	MajorVersionJava11 = 55
)

// Class access and property flags.
const (
	AccPublic     = 0x0001
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// Errors
var (
	// ErrBadMagic is returned when the file does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("not a class file, magic not found")
)

// ParseHeader parses the magic number and the minor/major version pair.
func (f *File) ParseHeader() error {
	magic, err := f.r.ReadUint32()
	if err != nil {
		return err
	}
	if magic != Magic {
		return fmt.Errorf("%w: got 0x%08X", ErrBadMagic, magic)
	}
	f.Magic = magic

	if f.MinorVersion, err = f.r.ReadUint16(); err != nil {
		return err
	}
	if f.MajorVersion, err = f.r.ReadUint16(); err != nil {
		return err
	}

	if f.MajorVersion > MajorVersionJava11 {
		f.Anomalies = append(f.Anomalies, AnoNewerClassFileVersion)
	}
	return nil
}

// ParseClassDeclaration parses the access flags, the this/super class
// references and the implemented interfaces. A super_class of 0 is legal
// for java/lang/Object and for module-info.
func (f *File) ParseClassDeclaration() error {
	var err error
	if f.AccessFlags, err = f.r.ReadUint16(); err != nil {
		return err
	}

	if f.ThisClass, err = f.r.ReadUint16(); err != nil {
		return err
	}
	if err = f.ConstantPool.Validate(f.ThisClass, TagClass); err != nil {
		return fmt.Errorf("this_class: %w", err)
	}

	if f.SuperClass, err = f.r.ReadUint16(); err != nil {
		return err
	}
	if err = f.ConstantPool.validateOptional(f.SuperClass, TagClass); err != nil {
		return fmt.Errorf("super_class: %w", err)
	}

	count, err := f.r.ReadUint16()
	if err != nil {
		return err
	}
	f.Interfaces = make([]uint16, 0, count)
	for i := uint16(0); i < count; i++ {
		index, err := f.r.ReadUint16()
		if err != nil {
			return err
		}
		if err = f.ConstantPool.Validate(index, TagClass); err != nil {
			return fmt.Errorf("interface %d: %w", i, err)
		}
		f.Interfaces = append(f.Interfaces, index)
	}
	return nil
}

// Parse decodes the whole class file. Decoding runs in two passes: the
// first pass builds the constant pool and the structural envelope with
// attribute payloads kept opaque, the second pass resolves every attribute
// into its typed form using names looked up in the pool. The first error
// aborts the parse.
func (f *File) Parse() error {
	f.r = newReader(f.data)

	if err := f.ParseHeader(); err != nil {
		return err
	}

	if err := f.ParseConstantPool(); err != nil {
		return err
	}

	if err := f.ParseClassDeclaration(); err != nil {
		return err
	}

	if err := f.ParseFields(); err != nil {
		return err
	}

	if err := f.ParseMethods(); err != nil {
		return err
	}

	var err error
	if f.Attributes, err = f.parseAttributes(f.r); err != nil {
		return fmt.Errorf("class attributes: %w", err)
	}

	if err := f.ResolveAttributes(); err != nil {
		return err
	}

	f.detectOverlay()
	return nil
}

// ClassName returns the fully qualified name of the parsed class.
func (f *File) ClassName() (string, error) {
	return f.ConstantPool.ClassNameAt(f.ThisClass)
}

// SuperClassName returns the name of the direct superclass, or "" when
// this class is java/lang/Object.
func (f *File) SuperClassName() (string, error) {
	if f.SuperClass == 0 {
		return "", nil
	}
	return f.ConstantPool.ClassNameAt(f.SuperClass)
}

// IsInterface reports whether the access flags mark an interface.
func (f *File) IsInterface() bool {
	return f.AccessFlags&AccInterface != 0
}

// IsModuleInfo reports whether this is a module-info class.
func (f *File) IsModuleInfo() bool {
	return f.AccessFlags&AccModule != 0
}
