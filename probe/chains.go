// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import "fmt"

// SetChainsForWipes enables partition tables and superblocks with the magic reported,
// which is required by Wipe.
func (h *Handle) SetChainsForWipes() error {
	if err := h.check(); err != nil {
		return err
	}

	var partitionsFlags PartitionsFlags

	if h.caps.PartitionsMagic {
		partitionsFlags |= PartitionsMagic
	}

	superblocksFlags := SuperblocksLabel | SuperblocksUUID | SuperblocksType |
		SuperblocksUsage | SuperblocksVersion | SuperblocksMagic

	if h.caps.BadChecksum {
		superblocksFlags |= SuperblocksBadChecksum
	}

	if err := h.setPartitions(partitionsFlags); err != nil {
		return err
	}

	return h.setSuperblocks(superblocksFlags)
}

// SetChainsForFullPrint is the same as SetChainsForWipes.
func (h *Handle) SetChainsForFullPrint() error {
	return h.SetChainsForWipes()
}

// SetChainsForSuperblocks enables superblocks reporting the type only.
//
// The partitions chain is left as is.
func (h *Handle) SetChainsForSuperblocks() error {
	if err := h.check(); err != nil {
		return err
	}

	return h.setSuperblocks(SuperblocksType)
}

// SetChainsForFastDetection enables partition tables with no flags and superblocks reporting the type only.
func (h *Handle) SetChainsForFastDetection() error {
	if err := h.check(); err != nil {
		return err
	}

	if err := h.setPartitions(0); err != nil {
		return err
	}

	return h.setSuperblocks(SuperblocksType)
}

// SuperblocksFilterLUKS excludes LUKS from the superblocks chain.
func (h *Handle) SuperblocksFilterLUKS() error {
	return h.filterLUKS(FilterNotIn)
}

// SuperblocksOnlyLUKS restricts the superblocks chain to LUKS.
func (h *Handle) SuperblocksOnlyLUKS() error {
	return h.filterLUKS(FilterOnlyIn)
}

func (h *Handle) filterLUKS(mode FilterMode) error {
	if err := h.check(); err != nil {
		return err
	}

	if err := h.session.FilterSuperblocksType(mode, []string{LUKSType}); err != nil {
		return fmt.Errorf("failed to set superblocks filter: %w", err)
	}

	return nil
}

func (h *Handle) setPartitions(flags PartitionsFlags) error {
	if err := h.session.EnablePartitions(true); err != nil {
		return fmt.Errorf("failed to enable partitions: %w", err)
	}

	if err := h.session.SetPartitionsFlags(flags); err != nil {
		return fmt.Errorf("failed to set partitions flags: %w", err)
	}

	return nil
}

func (h *Handle) setSuperblocks(flags SuperblocksFlags) error {
	if err := h.session.EnableSuperblocks(true); err != nil {
		return fmt.Errorf("failed to enable superblocks: %w", err)
	}

	if err := h.session.SetSuperblocksFlags(flags); err != nil {
		return fmt.Errorf("failed to set superblocks flags: %w", err)
	}

	return nil
}
