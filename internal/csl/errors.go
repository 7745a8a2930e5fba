// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package csl

import "fmt"

// ParseError reports a bibliographic source that could not be parsed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing BibTeX: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CardinalityError reports a bibliographic source that does not describe
// exactly one item.
type CardinalityError struct {
	Count int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("BibTeX source describes %d entries, want exactly 1", e.Count)
}
