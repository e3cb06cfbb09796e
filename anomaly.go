// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

// Anomalies found in a class file. None of these abort the parse, they are
// collected on File.Anomalies for callers that care.
var (

	// AnoNewerClassFileVersion is reported when the major version is newer
	// than the newest release this parser tracks.
	AnoNewerClassFileVersion = "Class file major version is newer than Java 11"

	// AnoZeroLengthCode is reported when a Code attribute declares an empty
	// instruction stream, which no compiler emits.
	AnoZeroLengthCode = "Code attribute with a zero-length instruction stream"

	// AnoUnknownAttribute is reported when an unrecognized attribute is
	// kept verbatim in lenient mode.
	AnoUnknownAttribute = "Unknown attribute kept unresolved"

	// AnoOverlayData is reported when data trails the last attribute.
	AnoOverlayData = "Class file has trailing data past the last attribute"
)
