// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package probe provides a probe handle for disk encryption tooling.
//
// A Handle wraps a probing session over one device: detection chains are configured
// with presets, the device is probed, detected values are read back and the detected
// signature can be wiped. The probing library is pluggable, when it is not available
// every operation reports ErrUnsupported.
//
// All returned strings and byte slices are copies owned by the caller.
// A Handle is not safe for concurrent use.
package probe

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Handle is a probe handle bound to a single device.
type Handle struct {
	// file is nil if the handle was created from a path
	file *os.File

	session Session
	caps    Capabilities
	wiper   wiper
	logger  *zap.Logger
}

// NewFromPath opens a probe handle on the device at path.
//
// The device is opened read-only and is owned by the handle.
func NewFromPath(path string, opts ...Option) (*Handle, error) {
	return newHandle(nil, func(lib Library, logger *zap.Logger) (Session, error) {
		return lib.NewSessionFromPath(path, logger)
	}, opts...)
}

// NewFromFile opens a probe handle on the whole file.
//
// The file is not closed by the handle.
func NewFromFile(f *os.File, opts ...Option) (*Handle, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil file", ErrInvalidArgument)
	}

	return newHandle(f, func(lib Library, logger *zap.Logger) (Session, error) {
		return lib.NewSessionFromFile(f, logger)
	}, opts...)
}

func newHandle(f *os.File, newSession func(Library, *zap.Logger) (Session, error), opts ...Option) (*Handle, error) {
	options := applyOptions(opts...)

	if !options.Library.Supported() {
		return nil, ErrUnsupported
	}

	caps := options.Library.Capabilities()
	if options.Capabilities != nil {
		caps = caps.Intersect(*options.Capabilities)
	}

	session, err := newSession(options.Library, options.Logger)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: failed to create probe session: %w", ErrInvalidArgument, err)
	}

	h := &Handle{
		file:    f,
		session: session,
		caps:    caps,
		logger:  options.Logger,
	}

	if caps.NativeWipe {
		h.wiper = nativeWiper{}
	} else {
		h.wiper = manualWiper{}
	}

	return h, nil
}

// Capabilities returns the effective capabilities of the handle.
func (h *Handle) Capabilities() Capabilities {
	if h == nil {
		return Capabilities{}
	}

	return h.caps
}

// Close releases the probing session.
//
// Close on a nil Handle is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.session == nil {
		return nil
	}

	err := h.session.Close()
	h.session = nil

	return err
}

var errClosed = fmt.Errorf("%w: handle is closed", ErrInvalidArgument)

func (h *Handle) check() error {
	if h == nil {
		return ErrUnsupported
	}

	if h.session == nil {
		return errClosed
	}

	return nil
}

// Probe runs a single probing pass over the enabled chains.
//
// Repeated calls step through further signatures.
func (h *Handle) Probe() (Status, error) {
	if err := h.check(); err != nil {
		return StatusFail, err
	}

	err := h.session.DoProbe()

	switch {
	case err == nil:
		return StatusOK, nil
	case errors.Is(err, ErrNothingFound):
		return StatusEmpty, nil
	default:
		return StatusFail, fmt.Errorf("probing failed: %w", err)
	}
}

// SafeProbe runs all enabled chains and refuses to report overlapping signatures.
//
// StatusAmbiguous leaves no values set.
func (h *Handle) SafeProbe() (Status, error) {
	if err := h.check(); err != nil {
		return StatusFail, err
	}

	err := h.session.DoSafeProbe()

	switch {
	case err == nil:
		return StatusOK, nil
	case errors.Is(err, ErrNothingFound):
		return StatusEmpty, nil
	case errors.Is(err, ErrAmbivalent):
		h.logger.Debug("ambiguous probing result")

		return StatusAmbiguous, nil
	default:
		return StatusFail, fmt.Errorf("safe probing failed: %w", err)
	}
}
