package util

import "strings"

func StringPtr(v string) *string { return &v }

// NonEmptyPtr returns nil for blank strings.
func NonEmptyPtr(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
