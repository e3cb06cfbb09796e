// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build gofuzz
// +build gofuzz

package jclass

func Fuzz(data []byte) int {
	f, err := NewBytes(data, &Options{KeepUnknownAttributes: true})
	if err != nil {
		return 0
	}
	err = f.Parse()
	if err != nil {
		return 0
	}
	return 1
}
