package domain

import "time"

// SliceRequest selects one horizontal slice of a gridded variable.
type SliceRequest struct {
	Path      string // source file
	Variable  string // e.g. "T2", "QVAPOR"
	ZLevel    int    // vertical level for 4D variables
	TimeIndex int    // record along the Time dimension
}

// Document is a finished conversion ready for a sink.
type Document struct {
	Request     SliceRequest
	Collection  *FeatureCollection
	Bands       []Band
	GeneratedAt time.Time
	Degenerate  bool
}
