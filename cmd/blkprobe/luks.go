// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-blkprobe/probe"
)

func newIsLUKSCommand(root *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "is-luks DEVICE",
		Short: "Exit with zero status if the device holds a LUKS header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := probe.NewFromPath(args[0], probe.WithLogger(root.logger))
			if err != nil {
				return err
			}

			defer h.Close() //nolint:errcheck

			if err = h.SetChainsForFullPrint(); err != nil {
				return err
			}

			if err = h.SuperblocksOnlyLUKS(); err != nil {
				return err
			}

			status, err := h.SafeProbe()
			if err != nil {
				return err
			}

			if status != probe.StatusOK {
				return &exitError{code: 1}
			}

			if verbose {
				version, _ := h.Version()
				id, _ := h.UUID()

				fmt.Fprintf(cmd.OutOrStdout(), "%s: LUKS%s %s\n", args[0], version, id)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the LUKS version and UUID")

	return cmd
}

func newCheckEmptyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-empty DEVICE",
		Short: "Fail if the device holds a signature other than LUKS",
		Long: `Fail if the device holds a signature other than LUKS.

Partition tables are detected as well, so a whole disk with partitions is never empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			h, err := probe.NewFromPath(args[0], probe.WithLogger(root.logger))
			if err != nil {
				return err
			}

			defer h.Close() //nolint:errcheck

			if err = h.SetChainsForFastDetection(); err != nil {
				return err
			}

			if err = h.SuperblocksFilterLUKS(); err != nil {
				return err
			}

			status, err := h.SafeProbe()
			if err != nil {
				return err
			}

			switch status { //nolint:exhaustive
			case probe.StatusEmpty:
				return nil
			case probe.StatusAmbiguous:
				return fmt.Errorf("%s: device contains ambiguous signatures", args[0])
			}

			if typ, ok := h.PartitionType(); ok {
				return fmt.Errorf("%s: device contains existing %s partition table", args[0], typ)
			}

			typ, _ := h.SuperblockType()

			return fmt.Errorf("%s: device contains existing %s signature", args[0], typ)
		},
	}
}
