// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributed describes the local aggregation group a reducer belongs to.
//
// The transport that moves bytes between peers lives outside this module: here we only model
// who the peers are, and which of them is the elected root of the group.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Communicator is the communication binding of the reducer: the ordered list of peer (local) ranks
// participating in a reduction group, and the rank elected as its root.
type Communicator interface {
	// Root returns the local rank elected to hold the reduced result of the group.
	Root() int

	// Peers returns the local ranks in the group, in order.
	Peers() []int
}

// PeerGroup is a static Communicator.
type PeerGroup struct {
	peers []int
	root  int
}

// Compile-time check that PeerGroup implements Communicator.
var _ Communicator = &PeerGroup{}

// ElectRoot returns the root of a group of peers: the last one in the list, or -1 if the list is empty.
func ElectRoot(peers []int) int {
	if len(peers) == 0 {
		return -1
	}
	return peers[len(peers)-1]
}

// NewPeerGroup creates a new PeerGroup with the given peers, and root.
//
// If root is negative, it is elected with ElectRoot.
// It returns an error if peers is empty, has negative or duplicate ranks, or if root is not one of the peers.
func NewPeerGroup(peers []int, root int) (*PeerGroup, error) {
	if len(peers) == 0 {
		return nil, errors.New("PeerGroup requires at least one peer")
	}
	seen := make(map[int]bool, len(peers))
	for i, peer := range peers {
		if peer < 0 {
			return nil, errors.Errorf("PeerGroup peer at index %d has invalid rank %d", i, peer)
		}
		if seen[peer] {
			return nil, errors.Errorf("PeerGroup peer rank %d is duplicated", peer)
		}
		seen[peer] = true
	}
	if root < 0 {
		root = ElectRoot(peers)
	} else if !seen[root] {
		return nil, errors.Errorf("PeerGroup root %d is not one of the peers %v", root, peers)
	}
	return &PeerGroup{peers: slices.Clone(peers), root: root}, nil
}

// Root implements Communicator.
func (g *PeerGroup) Root() int {
	return g.root
}

// Peers implements Communicator. It returns a copy of the peers.
func (g *PeerGroup) Peers() []int {
	return slices.Clone(g.peers)
}

// Size returns the number of peers in the group.
func (g *PeerGroup) Size() int {
	return len(g.peers)
}

// Has returns whether rank is one of the peers.
func (g *PeerGroup) Has(rank int) bool {
	return slices.Contains(g.peers, rank)
}

// String implements the fmt.Stringer interface.
func (g *PeerGroup) String() string {
	var sb strings.Builder
	sb.WriteString("PeerGroup(peers={")
	for i, peer := range g.peers {
		if i > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%d", peer)
	}
	_, _ = fmt.Fprintf(&sb, "}, root=%d)", g.root)
	return sb.String()
}
