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

// Package curated is a helper package for the plain error type in Go.
// Errors are created with Errorf() in the manner of fmt.Errorf() except
// that the format string, or pattern, doubles as the error's identity.
// Pattern strings are declared as constants near the code that creates
// them. For example:
//
//	const NotMapped = "memory: address not mapped"
//
//	func read(addr uint64) error {
//		return curated.Errorf(NotMapped)
//	}
//
// Callers can then test for the error kind with the Is() function, or with
// Has() if the error may have been wrapped by subsequent Errorf() calls.
//
// This style of error handling keeps error identity and error message in
// one place, without a central registry of error codes.
package curated
