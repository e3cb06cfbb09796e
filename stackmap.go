// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"fmt"
)

// Verification type tags.
const (
	ItemTop               = 0
	ItemInteger           = 1
	ItemFloat             = 2
	ItemDouble            = 3
	ItemLong              = 4
	ItemNull              = 5
	ItemUninitializedThis = 6
	ItemObject            = 7
	ItemUninitialized     = 8
)

// Stack map frame type boundaries. 128..246 is reserved for future use.
const (
	frameTypeSameMax             = 63
	frameTypeSameLocals1Max      = 127
	frameTypeSameLocals1Extended = 247
	frameTypeChopMin             = 248
	frameTypeChopMax             = 250
	frameTypeSameExtended        = 251
	frameTypeAppendMin           = 252
	frameTypeAppendMax           = 254
	frameTypeFull                = 255
)

// Errors
var (
	// ErrUnknownFrameType is returned for a stack map frame type in the
	// reserved range 128..246.
	ErrUnknownFrameType = errors.New("unknown stack map frame type")

	// ErrUnknownVerificationTag is returned for a verification type tag
	// outside 0..8.
	ErrUnknownVerificationTag = errors.New("unknown verification type tag")
)

// VerificationTypeInfo describes one JVM value type inside a stack map
// frame. ConstantPoolIndex is set for Object items, Offset for
// Uninitialized items.
type VerificationTypeInfo struct {
	Tag               uint8  `json:"tag"`
	ConstantPoolIndex uint16 `json:"cpool_index,omitempty"`
	Offset            uint16 `json:"offset,omitempty"`
}

// StackMapFrame is implemented by the seven frame shapes.
type StackMapFrame interface {
	// FrameType returns the raw frame type byte the frame was decoded from.
	FrameType() uint8
}

// SameFrame has the same locals as the previous frame and an empty stack.
// The offset delta is the frame type itself.
type SameFrame struct {
	Type uint8 `json:"frame_type"`
}

// SameLocals1StackItemFrame has the same locals as the previous frame and
// exactly one stack item. The offset delta is the frame type minus 64.
type SameLocals1StackItemFrame struct {
	Type  uint8                `json:"frame_type"`
	Stack VerificationTypeInfo `json:"stack"`
}

// SameLocals1StackItemFrameExtended is SameLocals1StackItemFrame with an
// explicit offset delta.
type SameLocals1StackItemFrameExtended struct {
	Type        uint8                `json:"frame_type"`
	OffsetDelta uint16               `json:"offset_delta"`
	Stack       VerificationTypeInfo `json:"stack"`
}

// ChopFrame drops the last 251-frame_type locals and has an empty stack.
type ChopFrame struct {
	Type        uint8  `json:"frame_type"`
	OffsetDelta uint16 `json:"offset_delta"`
}

// SameFrameExtended is SameFrame with an explicit offset delta.
type SameFrameExtended struct {
	Type        uint8  `json:"frame_type"`
	OffsetDelta uint16 `json:"offset_delta"`
}

// AppendFrame adds frame_type-251 locals and has an empty stack.
type AppendFrame struct {
	Type        uint8                  `json:"frame_type"`
	OffsetDelta uint16                 `json:"offset_delta"`
	Locals      []VerificationTypeInfo `json:"locals"`
}

// FullFrame spells out all locals and the whole stack.
type FullFrame struct {
	Type        uint8                  `json:"frame_type"`
	OffsetDelta uint16                 `json:"offset_delta"`
	Locals      []VerificationTypeInfo `json:"locals"`
	Stack       []VerificationTypeInfo `json:"stack"`
}

func (fr *SameFrame) FrameType() uint8                         { return fr.Type }
func (fr *SameLocals1StackItemFrame) FrameType() uint8         { return fr.Type }
func (fr *SameLocals1StackItemFrameExtended) FrameType() uint8 { return fr.Type }
func (fr *ChopFrame) FrameType() uint8                         { return fr.Type }
func (fr *SameFrameExtended) FrameType() uint8                 { return fr.Type }
func (fr *AppendFrame) FrameType() uint8                       { return fr.Type }
func (fr *FullFrame) FrameType() uint8                         { return fr.Type }

// parseStackMapFrame decodes one frame. The single frame type byte picks
// one of seven layouts.
func (f *File) parseStackMapFrame(r *reader) (StackMapFrame, error) {
	frameType, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	switch {
	case frameType <= frameTypeSameMax:
		return &SameFrame{Type: frameType}, nil

	case frameType <= frameTypeSameLocals1Max:
		stack, err := f.parseVerificationTypeInfo(r)
		if err != nil {
			return nil, err
		}
		return &SameLocals1StackItemFrame{Type: frameType, Stack: stack}, nil

	case frameType == frameTypeSameLocals1Extended:
		offsetDelta, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		stack, err := f.parseVerificationTypeInfo(r)
		if err != nil {
			return nil, err
		}
		return &SameLocals1StackItemFrameExtended{
			Type:        frameType,
			OffsetDelta: offsetDelta,
			Stack:       stack,
		}, nil

	case frameType >= frameTypeChopMin && frameType <= frameTypeChopMax:
		offsetDelta, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ChopFrame{Type: frameType, OffsetDelta: offsetDelta}, nil

	case frameType == frameTypeSameExtended:
		offsetDelta, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &SameFrameExtended{Type: frameType, OffsetDelta: offsetDelta}, nil

	case frameType >= frameTypeAppendMin && frameType <= frameTypeAppendMax:
		offsetDelta, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		locals := make([]VerificationTypeInfo, 0, frameType-frameTypeSameExtended)
		for i := uint8(0); i < frameType-frameTypeSameExtended; i++ {
			vti, err := f.parseVerificationTypeInfo(r)
			if err != nil {
				return nil, err
			}
			locals = append(locals, vti)
		}
		return &AppendFrame{Type: frameType, OffsetDelta: offsetDelta, Locals: locals}, nil

	case frameType == frameTypeFull:
		offsetDelta, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		locals, err := f.parseVerificationTypeInfos(r)
		if err != nil {
			return nil, err
		}
		stack, err := f.parseVerificationTypeInfos(r)
		if err != nil {
			return nil, err
		}
		return &FullFrame{
			Type:        frameType,
			OffsetDelta: offsetDelta,
			Locals:      locals,
			Stack:       stack,
		}, nil

	default:
		// 128..246 is reserved.
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, frameType)
	}
}

func (f *File) parseVerificationTypeInfos(r *reader) ([]VerificationTypeInfo, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	infos := make([]VerificationTypeInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		vti, err := f.parseVerificationTypeInfo(r)
		if err != nil {
			return nil, err
		}
		infos = append(infos, vti)
	}
	return infos, nil
}

func (f *File) parseVerificationTypeInfo(r *reader) (VerificationTypeInfo, error) {
	var vti VerificationTypeInfo

	tag, err := r.ReadUint8()
	if err != nil {
		return vti, err
	}
	vti.Tag = tag

	switch tag {
	case ItemTop, ItemInteger, ItemFloat, ItemDouble, ItemLong,
		ItemNull, ItemUninitializedThis:
		return vti, nil

	case ItemObject:
		if vti.ConstantPoolIndex, err = r.ReadUint16(); err != nil {
			return vti, err
		}
		if err = f.ConstantPool.Validate(vti.ConstantPoolIndex, TagClass); err != nil {
			return vti, err
		}
		return vti, nil

	case ItemUninitialized:
		if vti.Offset, err = r.ReadUint16(); err != nil {
			return vti, err
		}
		return vti, nil

	default:
		return vti, fmt.Errorf("%w: %d", ErrUnknownVerificationTag, tag)
	}
}
