// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package broadcast

import "syscall"

// The runtime already enables SO_BROADCAST on datagram sockets; port sharing
// is not available here, so the receiver needs the port to itself.
func senderControl(_, _ string, _ syscall.RawConn) error { return nil }

func receiverControl(_, _ string, _ syscall.RawConn) error { return nil }
