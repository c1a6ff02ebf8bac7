// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-blkprobe/probe"
)

var presets = map[string]func(*probe.Handle) error{
	"wipes":       (*probe.Handle).SetChainsForWipes,
	"full":        (*probe.Handle).SetChainsForFullPrint,
	"superblocks": (*probe.Handle).SetChainsForSuperblocks,
	"fast":        (*probe.Handle).SetChainsForFastDetection,
}

func presetNames() []string {
	names := make([]string, 0, len(presets))

	for name := range presets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

type probeOptions struct {
	preset      string
	output      string
	safe        bool
	onlyLUKS    bool
	excludeLUKS bool
	partitions  bool
}

func (o *probeOptions) configure(h *probe.Handle) error {
	setChains, ok := presets[o.preset]
	if !ok {
		return fmt.Errorf("unknown preset %q, expected one of: %s", o.preset, strings.Join(presetNames(), ", "))
	}

	if err := setChains(h); err != nil {
		return err
	}

	switch {
	case o.onlyLUKS:
		return h.SuperblocksOnlyLUKS()
	case o.excludeLUKS:
		return h.SuperblocksFilterLUKS()
	}

	return nil
}

func (o *probeOptions) probe(h *probe.Handle) (probe.Status, error) {
	if o.safe {
		return h.SafeProbe()
	}

	return h.Probe()
}

func newProbeCommand(root *rootOptions) *cobra.Command {
	opts := probeOptions{
		preset: "full",
		output: "value",
	}

	cmd := &cobra.Command{
		Use:   "probe DEVICE",
		Short: "Print the signatures found on the device",
		Long: `Print the signatures found on the device.

Without --safe every signature is printed in turn, with --safe a single
signature is printed and overlapping signatures are reported as ambiguous.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			if opts.output != "value" && opts.output != "export" {
				return fmt.Errorf("unknown output format %q", opts.output)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			device := args[0]

			h, err := probe.NewFromPath(device, probe.WithLogger(root.logger))
			if err != nil {
				return err
			}

			defer h.Close() //nolint:errcheck

			if err = opts.configure(h); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			found := false

			for {
				status, err := opts.probe(h)
				if err != nil {
					return err
				}

				switch status { //nolint:exhaustive
				case probe.StatusEmpty:
					if !found {
						return &exitError{code: 2}
					}

					return nil
				case probe.StatusAmbiguous:
					fmt.Fprintf(w, "%s: ambiguous signatures\n", device)

					return &exitError{code: 3}
				}

				found = true

				if opts.output == "export" {
					printExport(w, device, h.Values())
				} else {
					printValue(w, device, h.Values())
				}

				if opts.partitions {
					printPartitions(w, h.Partitions())
				}

				if opts.safe {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVarP(&opts.preset, "preset", "p", opts.preset, "chains preset: "+strings.Join(presetNames(), ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output format: value, export")
	cmd.Flags().BoolVar(&opts.safe, "safe", false, "refuse overlapping signatures")
	cmd.Flags().BoolVar(&opts.onlyLUKS, "only-luks", false, "probe LUKS headers only")
	cmd.Flags().BoolVar(&opts.excludeLUKS, "exclude-luks", false, "ignore LUKS headers")
	cmd.Flags().BoolVar(&opts.partitions, "partitions", false, "print partition table entries")

	cmd.MarkFlagsMutuallyExclusive("only-luks", "exclude-luks")

	return cmd
}
