// Package diagnose orchestrates the diagnostic round-trip: locate the
// sensor-carrying device in the room, pull its payload over RPC, relay it to
// the scoring backend, and mask the multi-second latency with the filler
// loop. The whole operation resolves to a single spoken string under every
// failure mode; nothing here ever surfaces an error to the conversation.
package diagnose

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lynkup/aitas/internal/metrics"
	"github.com/lynkup/aitas/room"
	"github.com/lynkup/aitas/types"
)

// Spoken failure messages, one per category.
const (
	apologyNoRoom      = "Sorry, I cannot access the job site connection needed for diagnosis."
	apologyNoDevice    = "Sorry, I couldn't identify the correct device to retrieve data from."
	apologyRPC         = "Sorry, I couldn't retrieve the FieldPiece data at the moment."
	apologyConfig      = "Sorry, the diagnosis service isn't configured correctly right now."
	apologyUnreachable = "Sorry, I couldn't reach the diagnosis service right now."
	apologyServer      = "The diagnosis service reported an error. Please try again later."
	apologyMalformed   = "Sorry, I received a diagnosis I couldn't make sense of."
)

const rpcMethod = "getFieldpieceData"

// RoomSource resolves the media room from session state.
type RoomSource interface {
	MediaRoom() room.Room
}

// Scorer is the slice of the backend API the controller consumes.
type Scorer interface {
	Diagnose(ctx context.Context, fieldpieceData string) (string, error)
}

// FillerLoop is the latency-masking speech task.
type FillerLoop interface {
	Start(ctx context.Context)
	Stop(wait time.Duration)
}

// Controller runs the diagnostic round-trip.
type Controller struct {
	scorer       Scorer
	filler       FillerLoop
	devicePrefix string
	rpcTimeout   time.Duration
	collector    *metrics.Collector
	logger       *zap.Logger
}

// NewController creates a controller. devicePrefix identifies the
// sensor-carrying participant by its metadata prefix; rpcTimeout bounds the
// device call.
func NewController(scorer Scorer, filler FillerLoop, devicePrefix string, rpcTimeout time.Duration, collector *metrics.Collector, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if devicePrefix == "" {
		devicePrefix = "android"
	}
	if rpcTimeout <= 0 {
		rpcTimeout = 40 * time.Second
	}
	return &Controller{
		scorer:       scorer,
		filler:       filler,
		devicePrefix: devicePrefix,
		rpcTimeout:   rpcTimeout,
		collector:    collector,
		logger:       logger.With(zap.String("component", "diagnose")),
	}
}

// Diagnose runs the full round-trip and always returns a spoken string. The
// filler loop starts immediately and is stopped in all paths with a bounded
// wait.
func (c *Controller) Diagnose(ctx context.Context, src RoomSource) (result string) {
	ctx, span := otel.Tracer("aitas/diagnose").Start(ctx, "diagnose")
	defer span.End()
	start := time.Now()

	if c.filler != nil {
		c.filler.Start(ctx)
		defer c.filler.Stop(time.Second)
	}
	defer func() {
		span.SetAttributes(attribute.String("diagnose.result", resultLabel(result)))
		c.collector.ObserveDiagnose(time.Since(start), resultLabel(result))
	}()

	rm := src.MediaRoom()
	if rm == nil {
		c.logger.Error("media room unavailable for diagnosis")
		return apologyNoRoom
	}

	identity, ok := c.findDevice(rm)
	if !ok {
		c.logger.Error("no device participant found",
			zap.String("prefix", c.devicePrefix),
			zap.Int("participants", len(rm.RemoteParticipants())),
		)
		return apologyNoDevice
	}

	c.logger.Info("requesting fieldpiece data", zap.String("identity", identity))
	payload, err := rm.PerformRPC(ctx, identity, rpcMethod, "{}", c.rpcTimeout)
	if err != nil {
		c.logger.Error("fieldpiece rpc failed", zap.Error(err))
		c.collector.IncRPCFailure(rpcMethod)
		return apologyRPC
	}

	diagnosis, err := c.scorer.Diagnose(ctx, payload)
	if err != nil {
		c.logger.Error("diagnosis request failed",
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Error(err),
		)
		return scoringApology(err)
	}

	c.logger.Info("diagnosis received")
	return diagnosis
}

// findDevice scans remote participants for one whose metadata carries the
// device tag.
func (c *Controller) findDevice(rm room.Room) (string, bool) {
	for _, p := range rm.RemoteParticipants() {
		if strings.HasPrefix(p.Metadata, c.devicePrefix) {
			return p.Identity, true
		}
	}
	return "", false
}

func scoringApology(err error) string {
	switch types.GetErrorCode(err) {
	case types.ErrConfigMissing:
		return apologyConfig
	case types.ErrUpstreamStatus:
		return apologyServer
	case types.ErrMalformedPayload:
		return apologyMalformed
	default:
		return apologyUnreachable
	}
}

func resultLabel(result string) string {
	if strings.HasPrefix(result, "Sorry") || strings.HasPrefix(result, "The diagnosis service") {
		return "apology"
	}
	return "ok"
}
