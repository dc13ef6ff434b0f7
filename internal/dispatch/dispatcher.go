// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch delivers recording commands over the broadcast network
// and the studio command API.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/mocapsync/internal/broadcast"
	"github.com/ManuGH/mocapsync/internal/command"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/metrics"
	"github.com/ManuGH/mocapsync/internal/studio"
	"github.com/ManuGH/mocapsync/internal/telemetry"
	"github.com/ManuGH/mocapsync/internal/wire"
)

const (
	tracerName = "mocapsync/dispatch"
	meterName  = "mocapsync.dispatch"
)

// OperationCalibrate names calibration dispatches in results and metrics.
const OperationCalibrate = "calibrate"

// ErrNoSender fails a broadcast leg requested from a dispatcher built
// without a sender.
var ErrNoSender = errors.New("dispatch: no broadcast sender configured")

// CommandAPI is the HTTP leg. *studio.Client satisfies it.
type CommandAPI interface {
	Recording(ctx context.Context, cmd command.RecordingCommand) (*wire.Response, error)
	Calibrate(ctx context.Context, cal command.CalibrationCommand) (*wire.Response, error)
}

// BroadcastSender is the broadcast leg. *broadcast.Sender satisfies it.
type BroadcastSender interface {
	Send(payload []byte) []broadcast.SendResult
}

var (
	_ CommandAPI      = (*studio.Client)(nil)
	_ BroadcastSender = (*broadcast.Sender)(nil)
)

// Config wires a Dispatcher.
type Config struct {
	Sender BroadcastSender
	API    CommandAPI
	Codec  wire.Codec
	// Verbose is consulted per dispatch; nil means never verbose.
	Verbose func() bool
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Dispatcher sends commands on the requested legs. It is safe for
// concurrent use when its Sender and API are.
type Dispatcher struct {
	sender  BroadcastSender
	api     CommandAPI
	codec   wire.Codec
	verbose func() bool
	logger  zerolog.Logger
	now     func() time.Time
}

// New returns a dispatcher for cfg.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		sender:  cfg.Sender,
		api:     cfg.API,
		codec:   cfg.Codec,
		verbose: cfg.Verbose,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if d.codec == nil {
		d.codec = wire.LegacyCodec{}
	}
	if d.verbose == nil {
		d.verbose = func() bool { return false }
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Dispatch sends cmd on the selected legs. Every leg is attempted
// independently and failures are logged and reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.RecordingCommand, legs Legs) Result {
	op := cmd.Kind.String()
	res, ctx, span, logger := d.begin(ctx, op)
	defer span.End()

	span.SetAttributes(telemetry.CommandAttributes(op, cmd.Name, int(cmd.Origin))...)
	span.SetAttributes(telemetry.LegAttributes(legs.Broadcast, legs.HTTP)...)
	logger = logger.With().Str(xglog.FieldClipName, cmd.Name).Str(xglog.FieldTimecode, cmd.Timecode).Logger()

	if legs.Broadcast {
		res.Broadcast = d.sendBroadcast(logger, span, cmd)
	}
	if legs.HTTP {
		res.HTTP = d.post(ctx, logger, res.TriggeredAt, "recording/"+cmd.Kind.Endpoint(), func(ctx context.Context) (*wire.Response, error) {
			return d.api.Recording(ctx, cmd)
		})
	}

	d.finish(logger, span, &res)
	return res
}

// Calibrate posts cal to the command API. Calibration has no broadcast form.
func (d *Dispatcher) Calibrate(ctx context.Context, cal command.CalibrationCommand) Result {
	res, ctx, span, logger := d.begin(ctx, OperationCalibrate)
	defer span.End()

	span.SetAttributes(telemetry.LegAttributes(false, true)...)
	logger = logger.With().Str(xglog.FieldDeviceID, cal.DeviceID).Logger()

	res.HTTP = d.post(ctx, logger, res.TriggeredAt, studio.EndpointCalibrate, func(ctx context.Context) (*wire.Response, error) {
		return d.api.Calibrate(ctx, cal)
	})

	d.finish(logger, span, &res)
	return res
}

func (d *Dispatcher) begin(ctx context.Context, op string) (Result, context.Context, trace.Span, zerolog.Logger) {
	res := Result{
		Operation:     op,
		CorrelationID: uuid.NewString(),
		TriggeredAt:   d.now(),
	}
	ctx = xglog.ContextWithCorrelationID(ctx, res.CorrelationID)
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "dispatch."+op)
	logger := xglog.WithContext(ctx, d.logger).With().Str(xglog.FieldCommand, op).Logger()
	return res, ctx, span, logger
}

func (d *Dispatcher) sendBroadcast(logger zerolog.Logger, span trace.Span, cmd command.RecordingCommand) []broadcast.SendResult {
	if d.sender == nil {
		logger.Warn().Str(xglog.FieldEvent, "dispatch.broadcast_unconfigured").Msg("broadcast leg requested without a sender")
		span.AddEvent("broadcast.unconfigured")
		return []broadcast.SendResult{{Err: ErrNoSender}}
	}

	payload := d.codec.EncodeBroadcast(cmd)
	results := d.sender.Send(payload)

	verbose := d.verbose()
	for _, r := range results {
		port := int(r.Dest.Port())
		if r.Err != nil {
			metrics.IncBroadcastSend(port, metrics.OutcomeFailure)
			span.AddEvent("broadcast.failed", trace.WithAttributes(attribute.String(telemetry.DestKey, r.Dest.String())))
			logger.Warn().
				Err(r.Err).
				Str(xglog.FieldEvent, "dispatch.broadcast_failed").
				Str(xglog.FieldDest, r.Dest.String()).
				Msg("broadcast send failed")
			continue
		}
		metrics.IncBroadcastSend(port, metrics.OutcomeSuccess)
		ev := logger.Debug()
		if verbose {
			ev = logger.Info()
		}
		ev.Str(xglog.FieldEvent, "dispatch.broadcast_sent").
			Str(xglog.FieldDest, r.Dest.String()).
			Int(xglog.FieldBytes, r.Bytes).
			Msg("broadcast sent")
	}
	return results
}

func (d *Dispatcher) post(ctx context.Context, logger zerolog.Logger, triggeredAt time.Time, endpoint string, call func(context.Context) (*wire.Response, error)) HTTPResult {
	out := HTTPResult{Attempted: true, Endpoint: endpoint}
	if d.api == nil {
		out.Err = studio.ErrUnavailable
		logger.Warn().Str(xglog.FieldEvent, "dispatch.api_unconfigured").Str(xglog.FieldEndpoint, endpoint).Msg("command api leg requested without a client")
		return out
	}

	resp, err := call(ctx)
	out.Response = resp
	out.Err = err

	if resp != nil {
		logger.Info().
			Str(xglog.FieldEvent, "dispatch.api_response").
			Str(xglog.FieldEndpoint, endpoint).
			Str("response_code", resp.ResponseCode).
			Str("description", resp.Description).
			Int64("start_time", resp.StartTime).
			Msg("command api responded")
	} else if err == nil {
		logger.Info().
			Str(xglog.FieldEvent, "dispatch.api_no_response").
			Str(xglog.FieldEndpoint, endpoint).
			Msg("no response message deserialized")
	}
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "dispatch.api_failed").
			Str(xglog.FieldEndpoint, endpoint).
			Time(xglog.FieldTriggeredAt, triggeredAt).
			Msg("command api request failed")
	}
	return out
}

func (d *Dispatcher) finish(logger zerolog.Logger, span trace.Span, res *Result) {
	res.Elapsed = d.now().Sub(res.TriggeredAt)
	status := res.Status()
	metrics.ObserveDispatch(res.Operation, status.String(), res.Elapsed.Seconds())
	recordOutcome(res.Operation, status)

	span.SetAttributes(attribute.String(telemetry.StatusKey, status.String()))
	if err := res.Err(); err != nil {
		span.RecordError(err)
		if status == StatusFailed {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	ev := logger.Debug()
	if d.verbose() {
		ev = logger.Info()
	}
	ev.Str(xglog.FieldEvent, "dispatch.completed").
		Str(xglog.FieldStatus, status.String()).
		Float64(xglog.FieldElapsedMS, float64(res.Elapsed.Microseconds())/1000).
		Msg("dispatch completed")
}

// recordOutcome looks the meter up at call time so a provider installed
// after New is still honoured.
func recordOutcome(op string, status Status) {
	meter := otel.GetMeterProvider().Meter(meterName)
	total, err := meter.Int64Counter("mocapsync_dispatch_total", metric.WithDescription("Dispatches by operation and status"))
	if err != nil {
		return
	}
	total.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", status.String()),
	))
}
