// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "Foo.class")
	if err := os.WriteFile(path, minimalClass().bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed, reason: %v", err)
	}

	file, err := New(path, nil)
	if err != nil {
		t.Fatalf("New(%s) failed, reason: %v", path, err)
	}
	defer file.Close()

	if err := file.Parse(); err != nil {
		t.Fatalf("Parse(%s) failed, reason: %v", path, err)
	}

	name, err := file.ClassName()
	if err != nil {
		t.Fatalf("ClassName failed, reason: %v", err)
	}
	if name != "Foo" {
		t.Errorf("ClassName got %q, want %q", name, "Foo")
	}
}

func TestNewMissingFile(t *testing.T) {

	if _, err := New(filepath.Join(t.TempDir(), "missing.class"), nil); err == nil {
		t.Error("New on a missing file did not fail")
	}
}

func TestNewBytesNilOptions(t *testing.T) {

	file, err := NewBytes(minimalClass().bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := file.Parse(); err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Errorf("Close failed, reason: %v", err)
	}
}
