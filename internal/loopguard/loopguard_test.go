// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loopguard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/mocapsync/internal/command"
)

func TestAcceptDropsOwnIdentity(t *testing.T) {
	for _, pid := range []command.ProcessID{0, 1, -1, 500, 999, math.MaxInt32, math.MinInt32} {
		assert.False(t, Accept(pid, pid), "pid %d", pid)
	}
}

func TestAcceptForwardsPeers(t *testing.T) {
	pairs := [][2]command.ProcessID{
		{999, 500},
		{500, 999},
		{0, 1},
		{-1, 1},
		{math.MaxInt32, math.MinInt32},
	}
	for _, p := range pairs {
		assert.True(t, Accept(p[0], p[1]), "origin %d local %d", p[0], p[1])
	}
}

func TestGuardAccept(t *testing.T) {
	g := New(500)

	peer := command.NewRecording(command.Start, "Remote", "", 0, 999)
	self := command.NewRecording(command.Start, "Remote", "", 0, 500)

	assert.True(t, g.Accept(peer))
	assert.False(t, g.Accept(self))
}
