// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"github.com/pkg/errors"
)

// Registry is the process-wide view of the local machine topology, owned by the launcher of the training
// process.
type Registry interface {
	// LocalRank is the rank of this process among the processes of the machine.
	LocalRank() int

	// LocalSize is the number of processes (one per device) on the machine.
	LocalSize() int

	// PCIeSwitchSize is the number of devices sharing a PCIe switch.
	PCIeSwitchSize() int
}

// StaticRegistry is a Registry with fixed values.
type StaticRegistry struct {
	Rank, Size, SwitchSize int
}

// Compile-time check that StaticRegistry implements Registry.
var _ Registry = StaticRegistry{}

// LocalRank implements Registry.
func (r StaticRegistry) LocalRank() int { return r.Rank }

// LocalSize implements Registry.
func (r StaticRegistry) LocalSize() int { return r.Size }

// PCIeSwitchSize implements Registry.
func (r StaticRegistry) PCIeSwitchSize() int { return r.SwitchSize }

// validateRegistry checks that the values reported by the registry are consistent.
func validateRegistry(reg Registry) error {
	rank, size, switchSize := reg.LocalRank(), reg.LocalSize(), reg.PCIeSwitchSize()
	if size <= 0 {
		return errors.Errorf("registry local size must be positive, got %d", size)
	}
	if rank < 0 || rank >= size {
		return errors.Errorf("registry local rank %d out of range [0, %d)", rank, size)
	}
	if switchSize <= 0 {
		return errors.Errorf("registry PCIe switch size must be positive, got %d", switchSize)
	}
	return nil
}

// PCIeSwitchPeers returns the local ranks that reduce together with this process on the CPU: one device
// of each PCIe switch, the one at the same position within its switch as the local rank.
//
// Example: with LocalSize=8 and PCIeSwitchSize=4, local rank 5 has peers [1, 5].
func PCIeSwitchPeers(reg Registry) ([]int, error) {
	if err := validateRegistry(reg); err != nil {
		return nil, err
	}
	switchSize := reg.PCIeSwitchSize()
	var peers []int
	for rank := reg.LocalRank() % switchSize; rank < reg.LocalSize(); rank += switchSize {
		peers = append(peers, rank)
	}
	return peers, nil
}

// NewPCIeGroup returns the PeerGroup of the local process, with peers given by PCIeSwitchPeers and
// the root elected with ElectRoot.
func NewPCIeGroup(reg Registry) (*PeerGroup, error) {
	peers, err := PCIeSwitchPeers(reg)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create PCIe peer group")
	}
	return NewPeerGroup(peers, -1)
}
