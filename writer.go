// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"encoding/binary"
	"fmt"
)

// writer is the encoding counterpart of reader, an append-only big-endian
// byte buffer.
type writer struct {
	buf []byte
}

func (w *writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) PutUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes serializes the parsed class back to class file bytes. For a class
// file that parsed without anomalies the output is byte-identical to the
// input. Attributes are re-encoded from their typed form, not replayed
// from the raw payload.
func (f *File) Bytes() ([]byte, error) {
	w := &writer{buf: make([]byte, 0, f.size)}

	w.PutUint32(f.Magic)
	w.PutUint16(f.MinorVersion)
	w.PutUint16(f.MajorVersion)

	if err := f.writeConstantPool(w); err != nil {
		return nil, err
	}

	w.PutUint16(f.AccessFlags)
	w.PutUint16(f.ThisClass)
	w.PutUint16(f.SuperClass)

	w.PutUint16(uint16(len(f.Interfaces)))
	for _, index := range f.Interfaces {
		w.PutUint16(index)
	}

	w.PutUint16(uint16(len(f.Fields)))
	for i := range f.Fields {
		field := &f.Fields[i]
		w.PutUint16(field.AccessFlags)
		w.PutUint16(field.NameIndex)
		w.PutUint16(field.DescriptorIndex)
		if err := f.writeAttributes(w, field.Attributes); err != nil {
			return nil, err
		}
	}

	w.PutUint16(uint16(len(f.Methods)))
	for i := range f.Methods {
		method := &f.Methods[i]
		w.PutUint16(method.AccessFlags)
		w.PutUint16(method.NameIndex)
		w.PutUint16(method.DescriptorIndex)
		if err := f.writeAttributes(w, method.Attributes); err != nil {
			return nil, err
		}
	}

	if err := f.writeAttributes(w, f.Attributes); err != nil {
		return nil, err
	}

	if f.HasOverlay {
		w.PutBytes(f.Overlay())
	}
	return w.buf, nil
}

func (f *File) writeConstantPool(w *writer) error {
	cp := &f.ConstantPool
	w.PutUint16(cp.Count)

	for i := uint16(1); i < cp.Count; i++ {
		entry := cp.Entries[i]
		if entry == nil {
			// Slot after a Long or Double.
			continue
		}
		w.PutUint8(uint8(entry.Tag()))

		switch c := entry.(type) {
		case *ConstantUtf8:
			encoded := EncodeModifiedUTF8(c.Value)
			w.PutUint16(uint16(len(encoded)))
			w.PutBytes(encoded)
		case *ConstantInteger:
			w.PutUint32(c.Bytes)
		case *ConstantFloat:
			w.PutUint32(c.Bytes)
		case *ConstantLong:
			w.PutUint32(c.HighBytes)
			w.PutUint32(c.LowBytes)
		case *ConstantDouble:
			w.PutUint32(c.HighBytes)
			w.PutUint32(c.LowBytes)
		case *ConstantClass:
			w.PutUint16(c.NameIndex)
		case *ConstantString:
			w.PutUint16(c.StringIndex)
		case *ConstantFieldref:
			w.PutUint16(c.ClassIndex)
			w.PutUint16(c.NameAndTypeIndex)
		case *ConstantMethodref:
			w.PutUint16(c.ClassIndex)
			w.PutUint16(c.NameAndTypeIndex)
		case *ConstantInterfaceMethodref:
			w.PutUint16(c.ClassIndex)
			w.PutUint16(c.NameAndTypeIndex)
		case *ConstantNameAndType:
			w.PutUint16(c.NameIndex)
			w.PutUint16(c.DescriptorIndex)
		case *ConstantMethodHandle:
			w.PutUint8(c.ReferenceKind)
			w.PutUint16(c.ReferenceIndex)
		case *ConstantMethodType:
			w.PutUint16(c.DescriptorIndex)
		case *ConstantDynamic:
			w.PutUint16(c.BootstrapMethodAttrIndex)
			w.PutUint16(c.NameAndTypeIndex)
		case *ConstantInvokeDynamic:
			w.PutUint16(c.BootstrapMethodAttrIndex)
			w.PutUint16(c.NameAndTypeIndex)
		case *ConstantModule:
			w.PutUint16(c.NameIndex)
		case *ConstantPackage:
			w.PutUint16(c.NameIndex)
		default:
			return fmt.Errorf("cannot encode constant pool entry %T", entry)
		}
	}
	return nil
}

func (f *File) writeAttributes(w *writer, attrs []AttributeInfo) error {
	w.PutUint16(uint16(len(attrs)))

	for i := range attrs {
		attr := &attrs[i]
		payload, err := f.encodeAttributeData(attr.Info)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		w.PutUint16(attr.NameIndex)
		w.PutUint32(uint32(len(payload)))
		w.PutBytes(payload)
	}
	return nil
}

func (f *File) encodeAttributeData(info AttributeData) ([]byte, error) {
	w := &writer{}

	switch a := info.(type) {
	case *ConstantValueAttr:
		w.PutUint16(a.ConstantValueIndex)

	case *CodeAttr:
		w.PutUint16(a.MaxStack)
		w.PutUint16(a.MaxLocals)
		w.PutUint32(uint32(len(a.Code)))
		w.PutBytes(a.Code)
		w.PutUint16(uint16(len(a.ExceptionTable)))
		for _, e := range a.ExceptionTable {
			w.PutUint16(e.StartPC)
			w.PutUint16(e.EndPC)
			w.PutUint16(e.HandlerPC)
			w.PutUint16(e.CatchType)
		}
		if err := f.writeAttributes(w, a.Attributes); err != nil {
			return nil, err
		}

	case *StackMapTableAttr:
		w.PutUint16(uint16(len(a.Entries)))
		for _, frame := range a.Entries {
			writeStackMapFrame(w, frame)
		}

	case *ExceptionsAttr:
		w.PutUint16(uint16(len(a.ExceptionIndexTable)))
		for _, index := range a.ExceptionIndexTable {
			w.PutUint16(index)
		}

	case *InnerClassesAttr:
		w.PutUint16(uint16(len(a.Classes)))
		for _, ic := range a.Classes {
			w.PutUint16(ic.InnerClassInfoIndex)
			w.PutUint16(ic.OuterClassInfoIndex)
			w.PutUint16(ic.InnerNameIndex)
			w.PutUint16(ic.InnerClassAccessFlags)
		}

	case *EnclosingMethodAttr:
		w.PutUint16(a.ClassIndex)
		w.PutUint16(a.MethodIndex)

	case *SyntheticAttr, *DeprecatedAttr:
		// Empty payload.

	case *SignatureAttr:
		w.PutUint16(a.SignatureIndex)

	case *SourceFileAttr:
		w.PutUint16(a.SourceFileIndex)

	case *SourceDebugExtensionAttr:
		w.PutBytes(EncodeModifiedUTF8(a.DebugExtension))

	case *LineNumberTableAttr:
		w.PutUint16(uint16(len(a.LineNumberTable)))
		for _, ln := range a.LineNumberTable {
			w.PutUint16(ln.StartPC)
			w.PutUint16(ln.LineNumber)
		}

	case *LocalVariableTableAttr:
		writeLocalVariables(w, a.LocalVariableTable)

	case *LocalVariableTypeTableAttr:
		writeLocalVariables(w, a.LocalVariableTable)

	case *RuntimeVisibleAnnotationsAttr:
		writeAnnotations(w, a.Annotations)

	case *RuntimeInvisibleAnnotationsAttr:
		writeAnnotations(w, a.Annotations)

	case *RuntimeVisibleParameterAnnotationsAttr:
		w.PutUint8(uint8(len(a.ParameterAnnotations)))
		for _, annotations := range a.ParameterAnnotations {
			writeAnnotations(w, annotations)
		}

	case *RuntimeInvisibleParameterAnnotationsAttr:
		w.PutUint8(uint8(len(a.ParameterAnnotations)))
		for _, annotations := range a.ParameterAnnotations {
			writeAnnotations(w, annotations)
		}

	case *AnnotationDefaultAttr:
		writeElementValue(w, a.DefaultValue)

	case *BootstrapMethodsAttr:
		w.PutUint16(uint16(len(a.BootstrapMethods)))
		for _, bm := range a.BootstrapMethods {
			w.PutUint16(bm.BootstrapMethodRef)
			w.PutUint16(uint16(len(bm.Arguments)))
			for _, arg := range bm.Arguments {
				w.PutUint16(arg)
			}
		}

	case *UnknownAttr:
		w.PutBytes(a.Data)

	default:
		return nil, fmt.Errorf("cannot encode attribute payload %T", info)
	}

	return w.buf, nil
}

func writeStackMapFrame(w *writer, frame StackMapFrame) {
	w.PutUint8(frame.FrameType())

	switch fr := frame.(type) {
	case *SameFrame:
	case *SameLocals1StackItemFrame:
		writeVerificationTypeInfo(w, fr.Stack)
	case *SameLocals1StackItemFrameExtended:
		w.PutUint16(fr.OffsetDelta)
		writeVerificationTypeInfo(w, fr.Stack)
	case *ChopFrame:
		w.PutUint16(fr.OffsetDelta)
	case *SameFrameExtended:
		w.PutUint16(fr.OffsetDelta)
	case *AppendFrame:
		w.PutUint16(fr.OffsetDelta)
		for _, vti := range fr.Locals {
			writeVerificationTypeInfo(w, vti)
		}
	case *FullFrame:
		w.PutUint16(fr.OffsetDelta)
		w.PutUint16(uint16(len(fr.Locals)))
		for _, vti := range fr.Locals {
			writeVerificationTypeInfo(w, vti)
		}
		w.PutUint16(uint16(len(fr.Stack)))
		for _, vti := range fr.Stack {
			writeVerificationTypeInfo(w, vti)
		}
	}
}

func writeVerificationTypeInfo(w *writer, vti VerificationTypeInfo) {
	w.PutUint8(vti.Tag)
	switch vti.Tag {
	case ItemObject:
		w.PutUint16(vti.ConstantPoolIndex)
	case ItemUninitialized:
		w.PutUint16(vti.Offset)
	}
}

func writeLocalVariables(w *writer, table []LocalVariable) {
	w.PutUint16(uint16(len(table)))
	for _, lv := range table {
		w.PutUint16(lv.StartPC)
		w.PutUint16(lv.Length)
		w.PutUint16(lv.NameIndex)
		w.PutUint16(lv.DescriptorOrSignatureIndex)
		w.PutUint16(lv.Index)
	}
}

func writeAnnotations(w *writer, annotations []Annotation) {
	w.PutUint16(uint16(len(annotations)))
	for i := range annotations {
		writeAnnotation(w, &annotations[i])
	}
}

func writeAnnotation(w *writer, annotation *Annotation) {
	w.PutUint16(annotation.TypeIndex)
	w.PutUint16(uint16(len(annotation.ElementValuePairs)))
	for i := range annotation.ElementValuePairs {
		pair := &annotation.ElementValuePairs[i]
		w.PutUint16(pair.ElementNameIndex)
		writeElementValue(w, pair.Value)
	}
}

func writeElementValue(w *writer, value AnnotationElementValue) {
	w.PutUint8(value.Tag)

	switch v := value.Value.(type) {
	case *ElementValueConst:
		w.PutUint16(v.ConstValueIndex)
	case *ElementValueEnum:
		w.PutUint16(v.TypeNameIndex)
		w.PutUint16(v.ConstNameIndex)
	case *ElementValueClass:
		w.PutUint16(v.ClassInfoIndex)
	case *ElementValueAnnotation:
		writeAnnotation(w, v.Annotation)
	case *ElementValueArray:
		w.PutUint16(uint16(len(v.Values)))
		for _, element := range v.Values {
			writeElementValue(w, element)
		}
	}
}
