// This file is part of Kestrel.
//
// Kestrel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kestrel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Kestrel.  If not, see <https://www.gnu.org/licenses/>.

package curated

import (
	"fmt"
	"strings"
)

// curated is an implementation of the go language error interface.
type curated struct {
	pattern string
	values  []interface{}
}

// Errorf creates a new curated error. The pattern string is used both for
// formatting and for identity. Two curated errors created from the same
// pattern are considered to be the same kind of error by the Is() and Has()
// functions, regardless of the values they were created with.
func Errorf(pattern string, values ...interface{}) error {
	// the arguments are kept unformatted until the Error() function is
	// called. the pattern string must survive as-is for Is() and Has()
	return curated{
		pattern: pattern,
		values:  values,
	}
}

// Error returns the formatted error message. Adjacent duplicate message
// parts in the error chain are elided.
//
// Implements the go language error interface.
func (er curated) Error() string {
	s := fmt.Errorf(er.pattern, er.values...).Error()

	p := strings.Split(s, ": ")
	t := make([]string, 0, len(p))
	for i := range p {
		if len(t) == 0 || t[len(t)-1] != p[i] {
			t = append(t, p[i])
		}
	}

	return strings.Join(t, ": ")
}

// IsAny checks if error is being curated by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(curated)
	return ok
}

// Is checks if error is a curated error with the specified pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(curated); ok {
		return er.pattern == pattern
	}

	return false
}

// Has checks if the specified pattern appears anywhere in the error chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}

	if Is(err, pattern) {
		return true
	}

	for i := range err.(curated).values {
		if e, ok := err.(curated).values[i].(curated); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}

	return false
}
