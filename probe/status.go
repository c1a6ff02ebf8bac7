// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

// Status is the outcome of a probing pass.
type Status int

// Status values.
const (
	// StatusOK means a signature was found.
	StatusOK Status = iota
	// StatusEmpty means no signature was found.
	StatusEmpty
	// StatusAmbiguous means SafeProbe found several signatures and reported none.
	StatusAmbiguous
	// StatusFail means probing failed, the error is returned along.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusAmbiguous:
		return "ambiguous"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}
