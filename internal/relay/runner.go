// internal/relay/runner.go
package relay

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
)

// Run consumes the inbound queue until ctx is done or in is closed.
// Each request is handled on its own goroutine. Requests already taken
// off the queue run to completion and emit before Run returns.
func (r *Relay) Run(ctx context.Context, in <-chan notify.PingRequest) {
	g := new(errgroup.Group)
	defer g.Wait()

	// In-flight lookups are not cancelled by shutdown.
	work := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-in:
			if !ok {
				return
			}
			g.Go(func() error {
				if err := r.Handle(work, req); err != nil {
					slog.Error("Failed to emit result", "identifier", req.Identifier, "error", err)
				}
				return nil
			})
		}
	}
}
