// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

// Wipe erases the magic of the signature found by the last probe.
//
// On success the session is re-armed, so the next Probe reflects the erased device.
// Wipe is a no-op if the last probe found nothing.
func (h *Handle) Wipe() error {
	if err := h.check(); err != nil {
		return err
	}

	return h.wiper.wipe(h)
}

// wiper is the strategy of erasing signatures, selected by capabilities.
type wiper interface {
	wipe(h *Handle) error
}

// nativeWiper delegates to the session.
type nativeWiper struct{}

func (nativeWiper) wipe(h *Handle) error {
	if err := h.session.Wipe(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}

// manualWiper writes zeroes over the magic through the caller's file.
type manualWiper struct{}

func (manualWiper) wipe(h *Handle) error {
	sectorSize := h.session.SectorSize()

	if h.file == nil || sectorSize == 0 {
		return fmt.Errorf("%w: wiping requires a device file with a known sector size", ErrInvalidArgument)
	}

	sig, err := h.signature()
	if err != nil {
		return err
	}

	if sig == nil {
		return nil
	}

	alignment := ioutil.PageSize()
	buf := ioutil.AlignedBuffer(len(sig.Magic), alignment)

	h.logger.Debug("wiping signature",
		zap.Stringer("kind", sig.Kind),
		zap.String("type", sig.Type),
		zap.Uint64("offset", sig.Offset),
		zap.Int("len", len(buf)),
	)

	n, err := ioutil.WriteAtBlockwise(h.file, int(sectorSize), alignment, buf, int64(sig.Offset))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if n != len(buf) {
		return fmt.Errorf("%w: short write at %d: %d of %d bytes", ErrIO, sig.Offset, n, len(buf))
	}

	h.rearm()

	return nil
}

// rearm makes the next probe start from the erased signature.
func (h *Handle) rearm() {
	if h.caps.StepBack {
		if err := h.session.StepBack(); err != nil {
			h.logger.Debug("failed to step back", zap.Error(err))
		}

		return
	}

	if err := h.session.Reset(); err != nil {
		h.logger.Debug("failed to reset probe", zap.Error(err))
	}

	if err := h.session.SetDevice(h.file, 0, 0); err != nil {
		h.logger.Debug("failed to rebind probe", zap.Error(err))
	}
}

func missingValue(name string) error {
	return fmt.Errorf("%w: %s is not set", ErrInvalidArgument, name)
}

func invalidValue(name string, err error) error {
	return fmt.Errorf("%w: invalid %s: %w", ErrInvalidArgument, name, err)
}
