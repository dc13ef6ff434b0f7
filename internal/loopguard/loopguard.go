// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loopguard suppresses the bridge's own broadcast echoes.
//
// Broadcast delivery is not point-to-point: the sender receives its own
// datagrams. Every command the bridge emits is tagged with its process
// identity, and inbound commands carrying that identity are dropped. Two
// bridges whose process identities collide would drop each other's commands;
// that is an accepted limitation of the peer protocol's tagging scheme.
package loopguard

import (
	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/metrics"
)

// Accept reports whether a command tagged origin should be forwarded by a
// bridge whose identity is local.
func Accept(origin, local command.ProcessID) bool {
	return origin != local
}

// Guard applies Accept against a fixed local identity.
type Guard struct {
	Local command.ProcessID
}

// New returns a guard for the given local identity.
func New(local command.ProcessID) Guard {
	return Guard{Local: local}
}

// Accept reports whether cmd came from a peer. Self echoes are counted.
func (g Guard) Accept(cmd command.RecordingCommand) bool {
	if !Accept(cmd.Origin, g.Local) {
		metrics.IncInbound(metrics.InboundSelfEcho)
		return false
	}
	return true
}
