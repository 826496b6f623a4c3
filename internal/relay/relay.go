// internal/relay/relay.go
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tamzrod/mcstatus-relay/internal/classify"
	"github.com/tamzrod/mcstatus-relay/internal/notify"
	"github.com/tamzrod/mcstatus-relay/internal/statusapi"
)

// Relay turns ping requests into exactly one broadcast each.
// It holds no per-request state; concurrent Handle calls are independent.
type Relay struct {
	looker  Looker
	emitter Emitter
	metrics *Metrics
}

// New creates a relay. metrics may be nil.
func New(looker Looker, emitter Emitter, metrics *Metrics) (*Relay, error) {
	if looker == nil {
		return nil, errors.New("relay: looker required")
	}
	if emitter == nil {
		return nil, errors.New("relay: emitter required")
	}
	return &Relay{looker: looker, emitter: emitter, metrics: metrics}, nil
}

// Handle performs one lookup and emits either MINECRAFT_UPDATE or
// MINECRAFT_ERROR, addressed by req.Identifier.
// The returned error is only about delivering that emission.
func (r *Relay) Handle(ctx context.Context, req notify.PingRequest) error {
	// Emission must happen even if the caller gives up meanwhile.
	emitCtx := context.WithoutCancel(ctx)

	if err := req.Validate(); err != nil {
		r.metrics.outcome(OutcomeInvalid)
		slog.Warn("Rejected ping request", "identifier", req.Identifier, "error", err)
		return r.emitError(emitCtx, req, classify.Errorf(req.Hostname, req.Port, "Invalid request: %v", err))
	}

	target := statusapi.Target{
		Host:    strings.TrimSpace(req.Hostname),
		Port:    req.Port,
		Bedrock: req.Bedrock,
	}

	r.metrics.begin()
	start := time.Now()
	res, err := r.looker.Lookup(ctx, target)
	elapsed := time.Since(start)
	r.metrics.end()
	r.metrics.observeLookup(req.Bedrock, elapsed)

	if err != nil {
		r.metrics.outcome(OutcomeError)
		f := faultFor(err, target)
		slog.Warn("Lookup failed",
			"identifier", req.Identifier,
			"target", req.Address(),
			"bedrock", req.Bedrock,
			"code", f.Code,
			"error", err,
		)
		return r.emitError(emitCtx, req, f)
	}

	r.metrics.outcome(OutcomeUpdate)
	r.metrics.setPlayers(target.Host, target.Port, res.Players)
	slog.Debug("Lookup finished",
		"identifier", req.Identifier,
		"target", req.Address(),
		"online", res.Online,
		"players", res.Players,
		"latency", elapsed,
	)

	return r.emitter.Emit(emitCtx, notify.Update, notify.UpdatePayload{
		Identifier: req.Identifier,
		Online:     res.Online,
		Players:    res.Players,
		MaxPlayers: res.MaxPlayers,
		PlayerList: res.PlayerNames(),
		Motd:       res.Motd,
		Version:    res.Version,
		Gamemode:   res.Gamemode,
		Icon:       res.Icon,
		Latency:    elapsed.Seconds(),
	})
}

func (r *Relay) emitError(ctx context.Context, req notify.PingRequest, f classify.Fault) error {
	return r.emitter.Emit(ctx, notify.Error, notify.ErrorPayload{
		Identifier: req.Identifier,
		Message:    classify.Message(f),
	})
}

// faultFor reduces a lookup error to a classifier input.
// HTTP status and body problems carry no fault code, so the classifier
// falls back to their own text.
func faultFor(err error, t statusapi.Target) classify.Fault {
	var httpErr *statusapi.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return classify.Errorf(t.Host, t.Port, "Status service error: %s", httpErr.Error())
	case errors.Is(err, statusapi.ErrMalformed):
		return classify.Errorf(t.Host, t.Port, "Unexpected answer from status service for %s:%d", t.Host, t.Port)
	}
	return classify.FromError(err, t.Host, t.Port)
}

