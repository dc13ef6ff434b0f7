// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package listener receives capture commands from the broadcast network and
// relays the ones issued by peers to the studio command API.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/dispatch"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/loopguard"
	"github.com/ManuGH/mocapsync/internal/metrics"
	"github.com/ManuGH/mocapsync/internal/wire"
)

// DefaultQueueSize bounds the relay backlog.
const DefaultQueueSize = 16

// PacketConn is the receive side of the broadcast socket. *net.UDPConn satisfies it.
type PacketConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	Close() error
}

// Relayer forwards accepted commands. *dispatch.Dispatcher satisfies it.
type Relayer interface {
	Dispatch(ctx context.Context, cmd command.RecordingCommand, legs dispatch.Legs) dispatch.Result
}

var _ Relayer = (*dispatch.Dispatcher)(nil)

// Config wires a Listener.
type Config struct {
	Conn  PacketConn
	Guard loopguard.Guard
	Codec wire.Codec
	Relay Relayer

	// QueueSize bounds pending relays; zero means DefaultQueueSize.
	QueueSize int
	// RateLimit caps accepted commands per second; zero means unlimited.
	RateLimit rate.Limit
	Burst     int

	// FrameRate supplies the rate stamped on relayed commands, which the
	// broadcast format does not carry.
	FrameRate func() float64
	Verbose   func() bool
	Logger    zerolog.Logger
}

// Listener owns one receive socket. Run may be called once.
type Listener struct {
	conn      PacketConn
	guard     loopguard.Guard
	codec     wire.Codec
	relay     Relayer
	queueSize int
	limiter   *rate.Limiter
	frameRate func() float64
	verbose   func() bool
	logger    zerolog.Logger
}

// New returns a listener for cfg.
func New(cfg Config) *Listener {
	l := &Listener{
		conn:      cfg.Conn,
		guard:     cfg.Guard,
		codec:     cfg.Codec,
		relay:     cfg.Relay,
		queueSize: cfg.QueueSize,
		frameRate: cfg.FrameRate,
		verbose:   cfg.Verbose,
		logger:    cfg.Logger,
	}
	if l.codec == nil {
		l.codec = wire.LegacyCodec{}
	}
	if l.queueSize <= 0 {
		l.queueSize = DefaultQueueSize
	}
	limit, burst := cfg.RateLimit, cfg.Burst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	l.limiter = rate.NewLimiter(limit, burst)
	if l.frameRate == nil {
		l.frameRate = func() float64 { return command.DefaultFrameRate }
	}
	if l.verbose == nil {
		l.verbose = func() bool { return false }
	}
	return l
}

// Run receives until ctx is cancelled or the socket is closed, both of which
// return nil. Any other receive failure is returned. The socket is closed
// when Run returns.
func (l *Listener) Run(ctx context.Context) error {
	metrics.SetListenerRunning(true)
	defer metrics.SetListenerRunning(false)

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = l.conn.Close() })
	defer stop()

	queue := make(chan command.RecordingCommand, l.queueSize)

	g.Go(func() error {
		defer close(queue)
		return l.receive(gctx, queue)
	})
	g.Go(func() error {
		l.relayLoop(gctx, queue)
		return nil
	})

	l.logger.Info().Str(xglog.FieldEvent, "listener.started").Msg("listening for capture commands")
	err := g.Wait()
	_ = l.conn.Close()
	metrics.SetRelayQueueDepth(0)

	if err != nil {
		l.logger.Error().Err(err).Str(xglog.FieldEvent, "listener.failed").Msg("receive loop failed")
		return err
	}
	l.logger.Info().Str(xglog.FieldEvent, "listener.stopped").Msg("listener stopped")
	return nil
}

func (l *Listener) receive(ctx context.Context, queue chan<- command.RecordingCommand) error {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("listener: receive: %w", err)
		}
		l.handle(buf[:n], from, queue)
	}
}

func (l *Listener) handle(payload []byte, from netip.AddrPort, queue chan<- command.RecordingCommand) {
	logger := l.logger.With().Str(xglog.FieldRemoteAddr, from.String()).Logger()
	if l.verbose() {
		logger.Info().
			Str(xglog.FieldEvent, "listener.received").
			Int(xglog.FieldBytes, len(payload)).
			Str("payload", string(payload)).
			Msg("datagram received")
	}

	cmd, err := l.codec.DecodeBroadcast(payload)
	switch {
	case errors.Is(err, wire.ErrNotCapture):
		metrics.IncInbound(metrics.InboundNotCapture)
		return
	case err != nil:
		metrics.IncInbound(metrics.InboundMalformed)
		logger.Warn().Err(err).Str(xglog.FieldEvent, "listener.decode_failed").Msg("dropping malformed capture command")
		return
	}

	if !l.guard.Accept(cmd) {
		logger.Debug().
			Str(xglog.FieldEvent, "listener.self_echo").
			Int(xglog.FieldOriginPID, int(cmd.Origin)).
			Msg("dropping own broadcast")
		return
	}

	if !l.limiter.Allow() {
		metrics.IncInbound(metrics.InboundRateLimited)
		logger.Warn().
			Str(xglog.FieldEvent, "listener.rate_limited").
			Str(xglog.FieldCommand, cmd.Kind.String()).
			Msg("dropping capture command over relay rate")
		return
	}

	cmd.FrameRate = l.frameRate()
	select {
	case queue <- cmd:
		metrics.IncInbound(metrics.InboundAccepted)
		metrics.SetRelayQueueDepth(len(queue))
	default:
		metrics.IncInbound(metrics.InboundQueueFull)
		logger.Warn().
			Str(xglog.FieldEvent, "listener.queue_full").
			Str(xglog.FieldCommand, cmd.Kind.String()).
			Str(xglog.FieldClipName, cmd.Name).
			Msg("relay queue full, dropping capture command")
	}
}

// relayLoop forwards queued commands to the command API only. Relays are
// never re-broadcast.
func (l *Listener) relayLoop(ctx context.Context, queue <-chan command.RecordingCommand) {
	for cmd := range queue {
		metrics.SetRelayQueueDepth(len(queue))
		if ctx.Err() != nil {
			continue
		}
		l.logger.Info().
			Str(xglog.FieldEvent, "listener.relay").
			Str(xglog.FieldCommand, cmd.Kind.String()).
			Str(xglog.FieldClipName, cmd.Name).
			Int(xglog.FieldOriginPID, int(cmd.Origin)).
			Msg("relaying capture command")
		l.relay.Dispatch(ctx, cmd, dispatch.Legs{HTTP: true})
	}
}
