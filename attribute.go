// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"fmt"
)

// Predefined attribute names.
const (
	AttrConstantValue                        = "ConstantValue"
	AttrCode                                 = "Code"
	AttrStackMapTable                        = "StackMapTable"
	AttrExceptions                           = "Exceptions"
	AttrInnerClasses                         = "InnerClasses"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrSynthetic                            = "Synthetic"
	AttrSignature                            = "Signature"
	AttrSourceFile                           = "SourceFile"
	AttrSourceDebugExtension                 = "SourceDebugExtension"
	AttrLineNumberTable                      = "LineNumberTable"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrDeprecated                           = "Deprecated"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrAnnotationDefault                    = "AnnotationDefault"
	AttrBootstrapMethods                     = "BootstrapMethods"
)

// Errors
var (
	// ErrUnknownAttribute is returned in strict mode when an attribute name
	// is not recognized.
	ErrUnknownAttribute = errors.New("unknown attribute name")

	// ErrAttributeLengthMismatch is returned when the typed payload of an
	// attribute does not consume exactly attribute_length bytes.
	ErrAttributeLengthMismatch = errors.New("attribute payload length mismatch")
)

// AttributeData is implemented by every typed attribute payload.
type AttributeData interface {
	isAttributeData()
}

// AttributeInfo is a named attribute attached to the class, a field, a
// method or a Code attribute. Right after structural decoding only
// NameIndex, Name, Length and Raw are set; the resolver pass fills Info with the
// typed payload. A fully parsed File never carries an unresolved attribute.
type AttributeInfo struct {
	NameIndex uint16        `json:"name_index"`
	Name      string        `json:"name"`
	Length    uint32        `json:"length"`
	Raw       []byte        `json:"-"`
	Info      AttributeData `json:"info"`
}

// ConstantValueAttr is the value of a static final field. The referenced
// entry is an Integer, Float, Long, Double or String constant, the exact
// kind depends on the field descriptor and is not narrowed here.
type ConstantValueAttr struct {
	ConstantValueIndex uint16 `json:"constantvalue_index"`
}

// CodeException is one entry of a Code attribute exception table. A
// CatchType of 0 catches everything (compiled `finally`).
type CodeException struct {
	StartPC   uint16 `json:"start_pc"`
	EndPC     uint16 `json:"end_pc"`
	HandlerPC uint16 `json:"handler_pc"`
	CatchType uint16 `json:"catch_type"`
}

// CodeAttr holds the bytecode of a method. The instruction stream is kept
// as raw bytes, decoding instructions is a consumer concern.
type CodeAttr struct {
	MaxStack       uint16          `json:"max_stack"`
	MaxLocals      uint16          `json:"max_locals"`
	Code           []byte          `json:"code"`
	ExceptionTable []CodeException `json:"exception_table"`
	Attributes     []AttributeInfo `json:"attributes"`
}

// StackMapTableAttr carries the verification frames of a Code attribute.
type StackMapTableAttr struct {
	Entries []StackMapFrame `json:"entries"`
}

// ExceptionsAttr lists the checked exceptions a method declares.
type ExceptionsAttr struct {
	ExceptionIndexTable []uint16 `json:"exception_index_table"`
}

// InnerClass is one record of an InnerClasses attribute.
// OuterClassInfoIndex and InnerNameIndex are 0 for anonymous and local
// classes.
type InnerClass struct {
	InnerClassInfoIndex   uint16 `json:"inner_class_info_index"`
	OuterClassInfoIndex   uint16 `json:"outer_class_info_index"`
	InnerNameIndex        uint16 `json:"inner_name_index"`
	InnerClassAccessFlags uint16 `json:"inner_class_access_flags"`
}

// InnerClassesAttr records every class mentioned in the constant pool that
// is a member of another class.
type InnerClassesAttr struct {
	Classes []InnerClass `json:"classes"`
}

// EnclosingMethodAttr marks a local or anonymous class. MethodIndex is 0
// when the class is not immediately enclosed by a method.
type EnclosingMethodAttr struct {
	ClassIndex  uint16 `json:"class_index"`
	MethodIndex uint16 `json:"method_index"`
}

// SyntheticAttr marks a member that does not appear in source code.
type SyntheticAttr struct{}

// SignatureAttr carries a generic signature.
type SignatureAttr struct {
	SignatureIndex uint16 `json:"signature_index"`
}

// SourceFileAttr names the source file the class was compiled from.
type SourceFileAttr struct {
	SourceFileIndex uint16 `json:"sourcefile_index"`
}

// SourceDebugExtensionAttr carries arbitrary debugging information, for
// example SMAP data for JSP pages.
type SourceDebugExtensionAttr struct {
	DebugExtension string `json:"debug_extension"`
}

// LineNumber maps a bytecode offset to a source line.
type LineNumber struct {
	StartPC    uint16 `json:"start_pc"`
	LineNumber uint16 `json:"line_number"`
}

// LineNumberTableAttr maps bytecode offsets to source lines.
type LineNumberTableAttr struct {
	LineNumberTable []LineNumber `json:"line_number_table"`
}

// LocalVariable describes one local variable slot over a bytecode range.
// DescriptorOrSignatureIndex holds a descriptor in LocalVariableTable and
// a generic signature in LocalVariableTypeTable; the layouts are identical.
type LocalVariable struct {
	StartPC                    uint16 `json:"start_pc"`
	Length                     uint16 `json:"length"`
	NameIndex                  uint16 `json:"name_index"`
	DescriptorOrSignatureIndex uint16 `json:"descriptor_or_signature_index"`
	Index                      uint16 `json:"index"`
}

// LocalVariableTableAttr describes the local variables of a method for
// debuggers.
type LocalVariableTableAttr struct {
	LocalVariableTable []LocalVariable `json:"local_variable_table"`
}

// LocalVariableTypeTableAttr is LocalVariableTable for variables with a
// generic type.
type LocalVariableTypeTableAttr struct {
	LocalVariableTable []LocalVariable `json:"local_variable_table"`
}

// DeprecatedAttr marks a deprecated class or member.
type DeprecatedAttr struct{}

// RuntimeVisibleAnnotationsAttr holds annotations visible to reflection.
type RuntimeVisibleAnnotationsAttr struct {
	Annotations []Annotation `json:"annotations"`
}

// RuntimeInvisibleAnnotationsAttr holds annotations invisible to
// reflection.
type RuntimeInvisibleAnnotationsAttr struct {
	Annotations []Annotation `json:"annotations"`
}

// RuntimeVisibleParameterAnnotationsAttr holds per-parameter annotations
// visible to reflection.
type RuntimeVisibleParameterAnnotationsAttr struct {
	ParameterAnnotations [][]Annotation `json:"parameter_annotations"`
}

// RuntimeInvisibleParameterAnnotationsAttr holds per-parameter annotations
// invisible to reflection.
type RuntimeInvisibleParameterAnnotationsAttr struct {
	ParameterAnnotations [][]Annotation `json:"parameter_annotations"`
}

// AnnotationDefaultAttr holds the default value of an annotation type
// element.
type AnnotationDefaultAttr struct {
	DefaultValue AnnotationElementValue `json:"default_value"`
}

// BootstrapMethod is one bootstrap method referenced by invokedynamic or
// a dynamically-computed constant.
type BootstrapMethod struct {
	BootstrapMethodRef uint16   `json:"bootstrap_method_ref"`
	Arguments          []uint16 `json:"bootstrap_arguments"`
}

// BootstrapMethodsAttr records the bootstrap methods of the class.
type BootstrapMethodsAttr struct {
	BootstrapMethods []BootstrapMethod `json:"bootstrap_methods"`
}

// UnknownAttr preserves an unrecognized attribute verbatim when
// Options.KeepUnknownAttributes is set.
type UnknownAttr struct {
	Data []byte `json:"data"`
}

func (*ConstantValueAttr) isAttributeData()                        {}
func (*CodeAttr) isAttributeData()                                 {}
func (*StackMapTableAttr) isAttributeData()                        {}
func (*ExceptionsAttr) isAttributeData()                           {}
func (*InnerClassesAttr) isAttributeData()                         {}
func (*EnclosingMethodAttr) isAttributeData()                      {}
func (*SyntheticAttr) isAttributeData()                            {}
func (*SignatureAttr) isAttributeData()                            {}
func (*SourceFileAttr) isAttributeData()                           {}
func (*SourceDebugExtensionAttr) isAttributeData()                 {}
func (*LineNumberTableAttr) isAttributeData()                      {}
func (*LocalVariableTableAttr) isAttributeData()                   {}
func (*LocalVariableTypeTableAttr) isAttributeData()               {}
func (*DeprecatedAttr) isAttributeData()                           {}
func (*RuntimeVisibleAnnotationsAttr) isAttributeData()            {}
func (*RuntimeInvisibleAnnotationsAttr) isAttributeData()          {}
func (*RuntimeVisibleParameterAnnotationsAttr) isAttributeData()   {}
func (*RuntimeInvisibleParameterAnnotationsAttr) isAttributeData() {}
func (*AnnotationDefaultAttr) isAttributeData()                    {}
func (*BootstrapMethodsAttr) isAttributeData()                     {}
func (*UnknownAttr) isAttributeData()                              {}

// parseAttributes reads an attribute count followed by that many framed
// attributes. Payloads stay opaque, interpretation needs the constant pool
// and happens in the resolver pass.
func (f *File) parseAttributes(r *reader) ([]AttributeInfo, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	attrs := make([]AttributeInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		name, err := f.ConstantPool.Utf8At(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute %d name: %w", i, err)
		}
		length, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes(length)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, AttributeInfo{
			NameIndex: nameIndex,
			Name:      name,
			Length:    length,
			Raw:       raw,
		})
	}
	return attrs, nil
}

// ResolveAttributes walks every attribute-bearing site of the class and
// replaces opaque payloads with their typed form.
func (f *File) ResolveAttributes() error {
	if err := f.resolveAttributeList(f.Attributes); err != nil {
		return fmt.Errorf("class attributes: %w", err)
	}
	for i := range f.Fields {
		if err := f.resolveAttributeList(f.Fields[i].Attributes); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	for i := range f.Methods {
		if err := f.resolveAttributeList(f.Methods[i].Attributes); err != nil {
			return fmt.Errorf("method %d: %w", i, err)
		}
	}
	return nil
}

func (f *File) resolveAttributeList(attrs []AttributeInfo) error {
	for i := range attrs {
		if err := f.resolveAttribute(&attrs[i]); err != nil {
			return fmt.Errorf("attribute %s: %w", attrs[i].Name, err)
		}
	}
	return nil
}

// resolveAttribute parses one opaque payload into its typed form. The
// payload gets its own sub-reader so a malformed attribute cannot reach
// into its siblings, and the cursor must end up exactly at
// attribute_length.
func (f *File) resolveAttribute(attr *AttributeInfo) error {
	r := newReader(attr.Raw)

	info, err := f.resolveAttributeData(attr.Name, r)
	if err != nil {
		return err
	}

	// SourceDebugExtension and unknown attributes consume the payload
	// wholesale, everything else must account for each declared byte.
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: consumed %d of %d bytes",
			ErrAttributeLengthMismatch, r.Offset(), attr.Length)
	}

	attr.Info = info
	return nil
}

func (f *File) resolveAttributeData(name string, r *reader) (AttributeData, error) {
	cp := &f.ConstantPool

	switch name {
	case AttrConstantValue:
		index, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if err := cp.validateAny(index); err != nil {
			return nil, err
		}
		return &ConstantValueAttr{ConstantValueIndex: index}, nil

	case AttrCode:
		return f.resolveCode(r)

	case AttrStackMapTable:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		entries := make([]StackMapFrame, 0, count)
		for i := uint16(0); i < count; i++ {
			frame, err := f.parseStackMapFrame(r)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			entries = append(entries, frame)
		}
		return &StackMapTableAttr{Entries: entries}, nil

	case AttrExceptions:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		table := make([]uint16, 0, count)
		for i := uint16(0); i < count; i++ {
			index, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			if err := cp.Validate(index, TagClass); err != nil {
				return nil, err
			}
			table = append(table, index)
		}
		return &ExceptionsAttr{ExceptionIndexTable: table}, nil

	case AttrInnerClasses:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		classes := make([]InnerClass, 0, count)
		for i := uint16(0); i < count; i++ {
			ic, err := f.parseInnerClass(r)
			if err != nil {
				return nil, fmt.Errorf("inner class %d: %w", i, err)
			}
			classes = append(classes, ic)
		}
		return &InnerClassesAttr{Classes: classes}, nil

	case AttrEnclosingMethod:
		classIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if err := cp.Validate(classIndex, TagClass); err != nil {
			return nil, err
		}
		methodIndex, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if err := cp.validateOptional(methodIndex, TagNameAndType); err != nil {
			return nil, err
		}
		return &EnclosingMethodAttr{ClassIndex: classIndex, MethodIndex: methodIndex}, nil

	case AttrSynthetic:
		return &SyntheticAttr{}, nil

	case AttrDeprecated:
		return &DeprecatedAttr{}, nil

	case AttrSignature:
		index, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if err := cp.Validate(index, TagUtf8); err != nil {
			return nil, err
		}
		return &SignatureAttr{SignatureIndex: index}, nil

	case AttrSourceFile:
		index, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if err := cp.Validate(index, TagUtf8); err != nil {
			return nil, err
		}
		return &SourceFileAttr{SourceFileIndex: index}, nil

	case AttrSourceDebugExtension:
		raw, err := r.ReadBytes(r.Remaining())
		if err != nil {
			return nil, err
		}
		value, err := DecodeModifiedUTF8(raw)
		if err != nil {
			return nil, err
		}
		return &SourceDebugExtensionAttr{DebugExtension: value}, nil

	case AttrLineNumberTable:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		table := make([]LineNumber, 0, count)
		for i := uint16(0); i < count; i++ {
			startPC, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			lineNumber, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			table = append(table, LineNumber{StartPC: startPC, LineNumber: lineNumber})
		}
		return &LineNumberTableAttr{LineNumberTable: table}, nil

	case AttrLocalVariableTable:
		table, err := f.parseLocalVariables(r)
		if err != nil {
			return nil, err
		}
		return &LocalVariableTableAttr{LocalVariableTable: table}, nil

	case AttrLocalVariableTypeTable:
		table, err := f.parseLocalVariables(r)
		if err != nil {
			return nil, err
		}
		return &LocalVariableTypeTableAttr{LocalVariableTable: table}, nil

	case AttrRuntimeVisibleAnnotations:
		annotations, err := f.parseAnnotations(r)
		if err != nil {
			return nil, err
		}
		return &RuntimeVisibleAnnotationsAttr{Annotations: annotations}, nil

	case AttrRuntimeInvisibleAnnotations:
		annotations, err := f.parseAnnotations(r)
		if err != nil {
			return nil, err
		}
		return &RuntimeInvisibleAnnotationsAttr{Annotations: annotations}, nil

	case AttrRuntimeVisibleParameterAnnotations:
		parameters, err := f.parseParameterAnnotations(r)
		if err != nil {
			return nil, err
		}
		return &RuntimeVisibleParameterAnnotationsAttr{ParameterAnnotations: parameters}, nil

	case AttrRuntimeInvisibleParameterAnnotations:
		parameters, err := f.parseParameterAnnotations(r)
		if err != nil {
			return nil, err
		}
		return &RuntimeInvisibleParameterAnnotationsAttr{ParameterAnnotations: parameters}, nil

	case AttrAnnotationDefault:
		value, err := f.parseElementValue(r)
		if err != nil {
			return nil, err
		}
		return &AnnotationDefaultAttr{DefaultValue: value}, nil

	case AttrBootstrapMethods:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		methods := make([]BootstrapMethod, 0, count)
		for i := uint16(0); i < count; i++ {
			bm, err := f.parseBootstrapMethod(r)
			if err != nil {
				return nil, fmt.Errorf("bootstrap method %d: %w", i, err)
			}
			methods = append(methods, bm)
		}
		return &BootstrapMethodsAttr{BootstrapMethods: methods}, nil

	default:
		if f.opts.KeepUnknownAttributes {
			raw, err := r.ReadBytes(r.Remaining())
			if err != nil {
				return nil, err
			}
			f.Anomalies = append(f.Anomalies, AnoUnknownAttribute)
			f.logger.Debugf("keeping unknown attribute %q verbatim", name)
			return &UnknownAttr{Data: raw}, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
}

// resolveCode decodes a Code attribute, recursively resolving its nested
// attribute table. Recursion is bounded: each nesting level consumes at
// least the framing bytes from a strictly smaller payload.
func (f *File) resolveCode(r *reader) (AttributeData, error) {
	maxStack, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	codeLength, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	code, err := r.ReadBytes(codeLength)
	if err != nil {
		return nil, err
	}
	if codeLength == 0 {
		f.Anomalies = append(f.Anomalies, AnoZeroLengthCode)
	}

	exceptionCount, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	exceptions := make([]CodeException, 0, exceptionCount)
	for i := uint16(0); i < exceptionCount; i++ {
		var entry CodeException
		if entry.StartPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if entry.EndPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if entry.HandlerPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if entry.CatchType, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if err = f.ConstantPool.validateOptional(entry.CatchType, TagClass); err != nil {
			return nil, fmt.Errorf("exception table entry %d: %w", i, err)
		}
		exceptions = append(exceptions, entry)
	}

	attributes, err := f.parseAttributes(r)
	if err != nil {
		return nil, err
	}
	if err := f.resolveAttributeList(attributes); err != nil {
		return nil, err
	}

	return &CodeAttr{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           code,
		ExceptionTable: exceptions,
		Attributes:     attributes,
	}, nil
}

func (f *File) parseInnerClass(r *reader) (InnerClass, error) {
	var ic InnerClass
	var err error

	if ic.InnerClassInfoIndex, err = r.ReadUint16(); err != nil {
		return ic, err
	}
	if err = f.ConstantPool.Validate(ic.InnerClassInfoIndex, TagClass); err != nil {
		return ic, err
	}

	// Anonymous classes have no outer class entry and no name, the file
	// encodes both as index 0.
	if ic.OuterClassInfoIndex, err = r.ReadUint16(); err != nil {
		return ic, err
	}
	if err = f.ConstantPool.validateOptional(ic.OuterClassInfoIndex, TagClass); err != nil {
		return ic, err
	}

	if ic.InnerNameIndex, err = r.ReadUint16(); err != nil {
		return ic, err
	}
	if err = f.ConstantPool.validateOptional(ic.InnerNameIndex, TagUtf8); err != nil {
		return ic, err
	}

	if ic.InnerClassAccessFlags, err = r.ReadUint16(); err != nil {
		return ic, err
	}
	return ic, nil
}

func (f *File) parseLocalVariables(r *reader) ([]LocalVariable, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	table := make([]LocalVariable, 0, count)
	for i := uint16(0); i < count; i++ {
		var lv LocalVariable
		if lv.StartPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if lv.Length, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if lv.NameIndex, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if err = f.ConstantPool.Validate(lv.NameIndex, TagUtf8); err != nil {
			return nil, fmt.Errorf("local variable %d: %w", i, err)
		}
		if lv.DescriptorOrSignatureIndex, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if err = f.ConstantPool.Validate(lv.DescriptorOrSignatureIndex, TagUtf8); err != nil {
			return nil, fmt.Errorf("local variable %d: %w", i, err)
		}
		if lv.Index, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		table = append(table, lv)
	}
	return table, nil
}

func (f *File) parseBootstrapMethod(r *reader) (BootstrapMethod, error) {
	var bm BootstrapMethod
	var err error

	if bm.BootstrapMethodRef, err = r.ReadUint16(); err != nil {
		return bm, err
	}
	if err = f.ConstantPool.Validate(bm.BootstrapMethodRef, TagMethodHandle); err != nil {
		return bm, err
	}

	count, err := r.ReadUint16()
	if err != nil {
		return bm, err
	}
	bm.Arguments = make([]uint16, 0, count)
	for i := uint16(0); i < count; i++ {
		index, err := r.ReadUint16()
		if err != nil {
			return bm, err
		}
		// Arguments are loadable constants of several kinds, only their
		// existence is checked.
		if err := f.ConstantPool.validateAny(index); err != nil {
			return bm, fmt.Errorf("argument %d: %w", i, err)
		}
		bm.Arguments = append(bm.Arguments, index)
	}
	return bm, nil
}
