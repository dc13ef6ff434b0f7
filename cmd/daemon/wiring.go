// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/mocapsync/internal/broadcast"
	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/config"
	"github.com/ManuGH/mocapsync/internal/listener"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/session"
	"github.com/ManuGH/mocapsync/internal/studio"
	"github.com/ManuGH/mocapsync/internal/version"
	"github.com/ManuGH/mocapsync/internal/wire"
)

// buildSession opens the send socket and wires the session. The receive
// socket is bound later by Session.Start.
func buildSession(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*session.Session, error) {
	dests, err := broadcast.Destinations(cfg.Broadcast.Address, cfg.Broadcast.Port, cfg.Broadcast.Offsets...)
	if err != nil {
		return nil, fmt.Errorf("broadcast destinations: %w", err)
	}
	conn, err := broadcast.OpenSender(ctx)
	if err != nil {
		return nil, err
	}

	client := studio.New(studio.Config{
		Host:      cfg.API.Host,
		Port:      cfg.API.Port,
		APIKey:    cfg.API.Key,
		Version:   cfg.API.Version,
		Timeout:   cfg.API.Timeout,
		UserAgent: "mocapsync/" + version.Version,
	})

	port := cfg.Broadcast.Port
	return session.New(session.Config{
		Sender:       broadcast.NewSender(conn, dests),
		API:          client,
		Codec:        wire.LegacyCodec{},
		SenderCloser: conn,
		OpenReceiver: func(ctx context.Context) (listener.PacketConn, error) {
			rc, err := broadcast.OpenReceiver(ctx, port)
			if err != nil {
				return nil, err
			}
			return rc, nil
		},
		Local:          command.LocalProcessID(),
		SendEnabled:    cfg.Broadcast.Send,
		ReceiveEnabled: cfg.Broadcast.Receive,
		Verbose:        cfg.Session.Verbose,
		FrameRate:      cfg.Session.FrameRate,
		RelayQueueSize: cfg.Relay.QueueSize,
		RelayRate:      rate.Limit(cfg.Relay.Rate),
		RelayBurst:     cfg.Relay.Burst,
		OnListenerError: func(err error) {
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "session.receive_disabled").
				Msg("receiving disabled; re-enable with 'r' or the control API")
		},
		Logger: logger,
	}), nil
}

// applyConfig pushes the runtime toggles that changed between prev and next
// into sess. Toggles the file did not change keep their live value, so an
// operator's console or API override survives unrelated edits. Network
// settings need a restart and are left alone.
func applyConfig(ctx context.Context, sess *session.Session, prev, next config.AppConfig, logger zerolog.Logger) {
	if next.Broadcast.Send != prev.Broadcast.Send {
		sess.SetSendEnabled(next.Broadcast.Send)
	}
	if next.Session.Verbose != prev.Session.Verbose {
		sess.SetVerbose(next.Session.Verbose)
	}
	if next.Session.FrameRate != prev.Session.FrameRate {
		if err := sess.SetFrameRate(next.Session.FrameRate); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").Msg("frame rate not applied")
		}
	}
	if next.Broadcast.Receive != prev.Broadcast.Receive {
		if err := sess.SetReceiveEnabled(ctx, next.Broadcast.Receive); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").Msg("receive toggle not applied")
		}
	}
}

func apiBaseURL(cfg config.AppConfig) string {
	return "http://" + net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)) + "/" + cfg.API.Version
}
