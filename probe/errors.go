// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import (
	"errors"
	"fmt"
)

// Errors returned by the Handle.
var (
	// ErrUnsupported is returned when the probing library is not available.
	ErrUnsupported = fmt.Errorf("block device probing is not available: %w", errors.ErrUnsupported)
	// ErrInvalidArgument is returned when a session can't be created or the handle can't wipe.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIO is returned when a signature can't be wiped.
	ErrIO = errors.New("input/output error")
)

// Session outcomes, Library implementations map their own errors to these.
var (
	// ErrNothingFound means no (more) signatures were found.
	ErrNothingFound = errors.New("nothing found")
	// ErrAmbivalent means more than one signature was found by a safe probe.
	ErrAmbivalent = errors.New("ambivalent probing result")
)
