// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import "fmt"

// UnresolvedCitekeyError reports a citation whose id is neither an absolute
// URL nor a defined citekey.
type UnresolvedCitekeyError struct {
	Key string
}

func (e *UnresolvedCitekeyError) Error() string {
	return fmt.Sprintf("citekey %q is not a URL and has no definition (add a line \"[@%s]: https://...\")", e.Key, e.Key)
}

// ConfigError reports a metadata setting of an unsupported type.
type ConfigError struct {
	Key   string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("metadata field %q must be a string, got %T", e.Key, e.Value)
}
