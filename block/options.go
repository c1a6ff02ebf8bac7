// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block

// Options for NewFromPath.
type Options struct {
	Flag int
}

// Option is a NewFromPath option.
type Option func(*Options)

// OpenForWrite opens the device in read-write mode.
func OpenForWrite() Option {
	return func(o *Options) {
		o.Flag |= writeFlag
	}
}

// WithExclusive opens the device with O_EXCL (fails if the device is in use).
func WithExclusive() Option {
	return func(o *Options) {
		o.Flag |= exclusiveFlag
	}
}
