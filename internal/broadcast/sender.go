// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package broadcast

import (
	"net/netip"
	"slices"
)

// PacketWriter is satisfied by *net.UDPConn.
type PacketWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// SendResult is the outcome of one datagram write.
type SendResult struct {
	Dest  netip.AddrPort
	Bytes int
	Err   error
}

// Sender writes each payload once per destination. UDP gives no delivery
// confirmation; a result only reports whether the local write succeeded.
type Sender struct {
	conn  PacketWriter
	dests []netip.AddrPort
}

// NewSender returns a sender over conn for the given destination set.
func NewSender(conn PacketWriter, dests []netip.AddrPort) *Sender {
	return &Sender{conn: conn, dests: slices.Clone(dests)}
}

// Destinations returns a copy of the destination set.
func (s *Sender) Destinations() []netip.AddrPort {
	return slices.Clone(s.dests)
}

// Send writes payload to every destination. A failed write never prevents
// the remaining ones.
func (s *Sender) Send(payload []byte) []SendResult {
	results := make([]SendResult, 0, len(s.dests))
	for _, d := range s.dests {
		n, err := s.conn.WriteToUDPAddrPort(payload, d)
		results = append(results, SendResult{Dest: d, Bytes: n, Err: err})
	}
	return results
}
