package domain

import (
	"errors"
	"fmt"
)

// ErrDegenerateInput marks a field with no usable value range (constant or
// entirely missing). It is a warning: conversion still succeeds and yields an
// empty FeatureCollection.
var ErrDegenerateInput = errors.New("degenerate input: field has no value range")

// ShapeMismatchError indicates that a coordinate array does not line up with
// the scalar field.
type ShapeMismatchError struct {
	Name     string // which array disagreed, e.g. "lat" or "XLONG"
	Expected []int
	Actual   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: expected %v, got %v", e.Name, e.Expected, e.Actual)
}

// MissingVariableError indicates that a requested field or coordinate
// variable is absent from the source.
type MissingVariableError struct {
	Variable string
	Source   string
}

func (e *MissingVariableError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing variable %q", e.Variable)
	}
	return fmt.Sprintf("missing variable %q in %s", e.Variable, e.Source)
}

// IndexOutOfRangeError indicates a lookup past the extent of an axis: a
// vertical level, a time index or a grid position during transformation.
type IndexOutOfRangeError struct {
	Axis   string
	Index  int
	Extent int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Axis, e.Index, e.Extent)
}

// InvalidBandsError indicates an unusable band configuration.
type InvalidBandsError struct {
	Reason string
}

func (e *InvalidBandsError) Error() string {
	return "invalid bands: " + e.Reason
}
