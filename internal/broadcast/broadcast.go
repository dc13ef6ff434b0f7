// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package broadcast is the UDP side of the bridge: destination sets,
// broadcast-capable sockets and a fire-and-forget fan-out sender.
package broadcast

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// DefaultAddr is the limited broadcast address.
const DefaultAddr = "255.255.255.255"

// DefaultOffsets sends to the configured port and the legacy port two below it.
var DefaultOffsets = []int{0, -2}

// Destinations expands a base port and offsets into the destination set.
func Destinations(addr string, port int, offsets ...int) ([]netip.AddrPort, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("broadcast address %q: %w", addr, err)
	}
	if !ip.Is4() {
		return nil, fmt.Errorf("broadcast address %q: must be IPv4", addr)
	}
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}

	out := make([]netip.AddrPort, 0, len(offsets))
	seen := make(map[int]struct{}, len(offsets))
	for _, off := range offsets {
		p := port + off
		if p < 1 || p > 65535 {
			return nil, fmt.Errorf("broadcast port %d%+d out of range", port, off)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, netip.AddrPortFrom(ip, uint16(p)))
	}
	return out, nil
}

// OpenSender opens an unbound UDP socket that may write to broadcast addresses.
func OpenSender(ctx context.Context) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: senderControl}
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open broadcast sender: %w", err)
	}
	return pc.(*net.UDPConn), nil
}

// OpenReceiver binds the broadcast port on all interfaces. The port is shared
// with other listeners on the same host (the capture software itself binds it).
func OpenReceiver(ctx context.Context, port int) (*net.UDPConn, error) {
	return openReceiver(ctx, net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
}

func openReceiver(ctx context.Context, addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: receiverControl}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("bind broadcast receiver %s: %w", addr, err)
	}
	return pc.(*net.UDPConn), nil
}
