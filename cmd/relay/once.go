// cmd/relay/once.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
	"github.com/tamzrod/mcstatus-relay/internal/relay"
)

// runOnce performs a single lookup through the relay and writes the
// emitted envelope to out. Diagnostics go to errOut so out stays pure JSON.
// Returns the process exit code.
func runOnce(ctx context.Context, looker relay.Looker, addr string, bedrock bool, out, errOut io.Writer) int {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid address %q: %v\n", addr, err)
		return 2
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid port %q\n", portStr)
		return 2
	}

	var got notify.Name
	printer := relay.EmitterFunc(func(_ context.Context, name notify.Name, payload any) error {
		got = name
		env, err := notify.NewEnvelope(name, payload)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	})

	rl, err := relay.New(looker, printer, nil)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	req := notify.PingRequest{
		Hostname:   host,
		Port:       port,
		Identifier: "cli",
		Bedrock:    bedrock,
	}
	if err := rl.Handle(ctx, req); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if got != notify.Update {
		return 1
	}
	return 0
}
