// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

// A class file structure fully accounts for its own length, so any bytes
// past the last class attribute are overlay data. Such trailing bytes are
// tolerated and exposed rather than rejected.

// detectOverlay records where the class structure ended relative to the
// underlying data.
func (f *File) detectOverlay() {
	f.OverlayOffset = int64(f.r.Offset())
	if f.r.Remaining() > 0 {
		f.HasOverlay = true
		f.Anomalies = append(f.Anomalies, AnoOverlayData)
		f.logger.Debugf("class file has %d bytes of overlay data", f.r.Remaining())
	}
}

// Overlay returns the data appended past the end of the class structure.
func (f *File) Overlay() []byte {
	if !f.HasOverlay {
		return nil
	}
	return f.data[f.OverlayOffset:]
}

// OverlayLength returns the overlay size in bytes.
func (f *File) OverlayLength() int64 {
	return int64(f.size) - f.OverlayOffset
}
