// Package money holds helpers for amounts stored as int64 minor units.
package money

import "fmt"

// Format renders minor units as a plain decimal string without float
// arithmetic, e.g. 12345 -> "123.45".
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
