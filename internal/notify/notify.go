// internal/notify/notify.go
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxHostnameLen is the DNS limit on a full name.
const maxHostnameLen = 253

// Name identifies a notification travelling between widgets and the relay.
type Name string

const (
	// widget -> relay (queue, one consumer)
	Ping Name = "MINECRAFT_PING"

	// relay -> widgets (broadcast, every widget gets a copy)
	Update Name = "MINECRAFT_UPDATE"
	Error  Name = "MINECRAFT_ERROR"
)

// Envelope wraps every notification with its name.
type Envelope struct {
	Notification Name            `json:"notification"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// PingRequest asks the relay to look up one Minecraft server.
// Identifier is opaque: it is only echoed back so the sender can pick its
// own answer out of the broadcast traffic.
type PingRequest struct {
	Hostname   string `json:"hostname"`
	Port       int    `json:"port"`
	Identifier string `json:"identifier"`
	Bedrock    bool   `json:"bedrock,omitempty"`
}

// UpdatePayload is broadcast once per successful lookup.
type UpdatePayload struct {
	Identifier string   `json:"identifier"`
	Online     bool     `json:"online"`
	Players    int      `json:"players"`
	MaxPlayers int      `json:"maxPlayers"`
	PlayerList []string `json:"playerList"`
	Motd       string   `json:"motd"`
	Version    string   `json:"version"`
	Gamemode   string   `json:"gamemode,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Latency    float64  `json:"latency"` // seconds
}

// ErrorPayload is broadcast once per failed lookup.
type ErrorPayload struct {
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

// Validate checks the fields the relay needs to build a lookup URL.
// Identifier is not checked.
func (r PingRequest) Validate() error {
	host := strings.TrimSpace(r.Hostname)
	if host == "" {
		return errors.New("hostname is required")
	}
	if err := checkHostname(host); err != nil {
		return err
	}
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", r.Port)
	}
	return nil
}

// checkHostname accepts DNS names (including IDN), IPv4 and bracketed or
// bare IPv6 literals.
func checkHostname(host string) error {
	if !utf8.ValidString(host) {
		return errors.New("hostname is not valid UTF-8")
	}
	if len(host) > maxHostnameLen+2 {
		return fmt.Errorf("hostname longer than %d bytes", maxHostnameLen)
	}
	for _, c := range host {
		switch {
		case unicode.IsLetter(c), unicode.IsDigit(c):
		case c == '.', c == '-', c == '_', c == ':', c == '[', c == ']':
		default:
			return fmt.Errorf("hostname contains invalid character %q", c)
		}
	}
	return nil
}

// Address returns hostname:port as the status API expects it.
func (r PingRequest) Address() string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(r.Hostname), r.Port)
}

// NewEnvelope marshals payload under the given notification name.
func NewEnvelope(name Name, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Notification: name, Payload: raw}, nil
}

// ParseEnvelope parses a raw notification.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Notification == "" {
		return Envelope{}, errors.New("notification name missing")
	}
	return env, nil
}

// DecodePing extracts a PingRequest from an envelope.
func DecodePing(env Envelope) (PingRequest, error) {
	if env.Notification != Ping {
		return PingRequest{}, fmt.Errorf("unexpected notification %q", env.Notification)
	}
	var req PingRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return PingRequest{}, fmt.Errorf("decode %s payload: %w", Ping, err)
	}
	return req, nil
}
