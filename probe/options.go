// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import "go.uber.org/zap"

// Options for the Handle.
type Options struct {
	Logger  *zap.Logger
	Library Library

	// Capabilities masks the capabilities of the Library, nil means all of them.
	Capabilities *Capabilities
}

// Option is a functional option for the Handle.
type Option func(*Options)

// WithLogger sets the logger for the handle and its session.
//
// A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithLibrary overrides the probing library.
func WithLibrary(lib Library) Option {
	return func(o *Options) {
		o.Library = lib
	}
}

// WithCapabilities restricts the capabilities of the probing library.
//
// Capabilities the library lacks can't be added.
func WithCapabilities(caps Capabilities) Option {
	return func(o *Options) {
		o.Capabilities = &caps
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	if o.Library == nil {
		o.Library = DefaultLibrary()
	}

	return o
}
