// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package backup stores copies of signatures before they are erased.
//
// Each backup is a zstd-compressed file named after the device and the
// offset of the signature, so it can be restored with dd.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Ext is the extension of backup files.
const Ext = ".bak.zst"

// Path returns the backup path for the signature of the device at offset.
//
// The signature type is part of the name, so layered signatures at the same offset
// do not overwrite each other.
func Path(dir, device, sigType string, offset uint64) string {
	name := strings.Join([]string{
		"blkprobe",
		filepath.Base(device),
		sigType,
		"0x" + strconv.FormatUint(offset, 16),
	}, "-")

	return filepath.Join(dir, name+Ext)
}

// Write stores the compressed data in dir and returns the path of the backup.
func Write(dir, device, sigType string, offset uint64, data []byte) (string, error) {
	path := Path(dir, device, sigType, offset)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	defer f.Close() //nolint:errcheck

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return "", err
	}

	if _, err = zw.Write(data); err != nil {
		zw.Close() //nolint:errcheck

		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err = f.Sync(); err != nil {
		return "", err
	}

	return path, f.Close()
}

// Read returns the decompressed contents of the backup.
func Read(path string) ([]byte, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	zr, err := zstd.NewReader(bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}

	defer zr.Close()

	return io.ReadAll(zr)
}
