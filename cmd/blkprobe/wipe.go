// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-blkprobe/block"
	"github.com/siderolabs/go-blkprobe/internal/backup"
	"github.com/siderolabs/go-blkprobe/probe"
)

// maxSignatures bounds the wipe loop if a signature survives its wipe.
const maxSignatures = 256

type wipeOptions struct {
	backupDir   string
	noAct       bool
	excludeLUKS bool
	fast        bool
}

func newWipeCommand(root *rootOptions) *cobra.Command {
	var opts wipeOptions

	cmd := &cobra.Command{
		Use:   "wipe DEVICE",
		Short: "Erase all signatures found on the device",
		Long: `Erase all signatures found on the device.

The device is locked exclusively while signatures are erased. Only the magic
of each signature is overwritten with zeroes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wipe(cmd, root.logger, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.backupDir, "backup-dir", "b", "", "store a copy of each signature in the directory")
	cmd.Flags().BoolVarP(&opts.noAct, "no-act", "n", false, "print the signatures without erasing them")
	cmd.Flags().BoolVar(&opts.excludeLUKS, "exclude-luks", false, "keep LUKS headers")
	cmd.Flags().BoolVar(&opts.fast, "fast", false, "zero the first and last MiB of the device after erasing signatures")

	cmd.MarkFlagsMutuallyExclusive("fast", "no-act")
	cmd.MarkFlagsMutuallyExclusive("fast", "exclude-luks")

	return cmd
}

func wipe(cmd *cobra.Command, logger *zap.Logger, device string, opts wipeOptions) error {
	var blockOpts []block.Option

	if !opts.noAct {
		blockOpts = append(blockOpts, block.OpenForWrite())
	}

	dev, err := block.NewFromPath(device, blockOpts...)
	if err != nil {
		return err
	}

	defer dev.Close() //nolint:errcheck

	if err = dev.TryLock(true); err != nil {
		return fmt.Errorf("failed to lock %s: %w", device, err)
	}

	defer dev.Unlock() //nolint:errcheck

	h, err := probe.NewFromFile(dev.File(), probe.WithLogger(logger))
	if err != nil {
		return err
	}

	defer h.Close() //nolint:errcheck

	if err = h.SetChainsForWipes(); err != nil {
		return err
	}

	if opts.excludeLUKS {
		if err = h.SuperblocksFilterLUKS(); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()

	for range maxSignatures {
		if err = cmd.Context().Err(); err != nil {
			return err
		}

		status, err := h.Probe()
		if err != nil {
			return err
		}

		if status == probe.StatusEmpty {
			if !opts.fast {
				return nil
			}

			logger.Info("zeroing device head and tail", zap.String("device", device))

			return dev.FastWipe()
		}

		sig, ok := h.Signature()
		if !ok {
			return fmt.Errorf("%s: signature magic is not available", device)
		}

		if opts.noAct {
			fmt.Fprintf(w, "%s: %d bytes at offset 0x%x (%s %s) would be erased\n", device, len(sig.Magic), sig.Offset, sig.Kind, sig.Type)

			continue
		}

		if opts.backupDir != "" {
			path, err := backup.Write(opts.backupDir, device, sig.Type, sig.Offset, sig.Magic)
			if err != nil {
				return err
			}

			logger.Info("signature backed up", zap.String("type", sig.Type), zap.String("path", path))
		}

		if err = h.Wipe(); err != nil {
			return err
		}

		fmt.Fprintf(w, "%s: %d bytes were erased at offset 0x%x (%s %s)\n", device, len(sig.Magic), sig.Offset, sig.Kind, sig.Type)
	}

	return errors.New("too many signatures")
}
