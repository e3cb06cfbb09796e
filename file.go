// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/saferwall/jclass/log"
)

// A File represents an open Java class file.
type File struct {
	Magic         uint32          `json:"magic"`
	MinorVersion  uint16          `json:"minor_version"`
	MajorVersion  uint16          `json:"major_version"`
	ConstantPool  ConstantPool    `json:"constant_pool"`
	AccessFlags   uint16          `json:"access_flags"`
	ThisClass     uint16          `json:"this_class"`
	SuperClass    uint16          `json:"super_class"`
	Interfaces    []uint16        `json:"interfaces"`
	Fields        []FieldInfo     `json:"fields"`
	Methods       []MethodInfo    `json:"methods"`
	Attributes    []AttributeInfo `json:"attributes"`
	Anomalies     []string        `json:"anomalies,omitempty"`
	HasOverlay    bool            `json:"has_overlay"`
	OverlayOffset int64           `json:"overlay_offset"`

	data   mmap.MMap
	size   uint32
	f      *os.File
	r      *reader
	opts   *Options
	logger *log.Helper
}

// Options for parsing.
type Options struct {

	// Keep unrecognized attributes verbatim instead of failing, by
	// default (false) an unknown attribute name aborts the parse.
	KeepUnknownAttributes bool

	// A custom logger.
	Logger log.Logger
}

// New instantiates a file instance with options given a file name.
func New(name string, opts *Options) (*File, error) {

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	// Memory map the file instead of using read/write.
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}

	var logger log.Logger
	if file.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stdout)
		file.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		file.logger = log.NewHelper(file.opts.Logger)
	}

	file.data = data
	file.size = uint32(len(file.data))
	file.f = f
	return &file, nil
}

// NewBytes instantiates a file instance with options given a memory buffer.
func NewBytes(data []byte, opts *Options) (*File, error) {

	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}

	var logger log.Logger
	if file.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stdout)
		file.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		file.logger = log.NewHelper(file.opts.Logger)
	}

	file.data = data
	file.size = uint32(len(file.data))
	return &file, nil
}

// Close closes the File.
func (f *File) Close() error {
	if f.f != nil {
		if f.data != nil {
			_ = f.data.Unmap()
		}
		return f.f.Close()
	}
	return nil
}
