// internal/relay/types.go
package relay

import (
	"context"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
	"github.com/tamzrod/mcstatus-relay/internal/statusapi"
)

// Looker abstracts the status API operation the relay needs.
type Looker interface {
	Lookup(ctx context.Context, t statusapi.Target) (*statusapi.Result, error)
}

// Emitter delivers one notification to every widget.
type Emitter interface {
	Emit(ctx context.Context, name notify.Name, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, name notify.Name, payload any) error

func (f EmitterFunc) Emit(ctx context.Context, name notify.Name, payload any) error {
	return f(ctx, name, payload)
}

// Outcome labels the terminal result of one request.
type Outcome string

const (
	OutcomeUpdate  Outcome = "update"
	OutcomeError   Outcome = "error"
	OutcomeInvalid Outcome = "invalid"
)
