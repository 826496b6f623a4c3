// internal/statusapi/types.go
package statusapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformed is returned when the API answers 2xx but the body is not a
// usable status document.
var ErrMalformed = errors.New("status API: malformed response")

// Target is one server to look up.
type Target struct {
	Host    string
	Port    int
	Bedrock bool
}

// Player is one entry of the online player list.
type Player struct {
	Name string
	UUID uuid.UUID // uuid.Nil when the API did not send a parseable one
}

// Result is the decoded, simplified status document.
type Result struct {
	Online     bool
	Players    int
	MaxPlayers int
	PlayerList []Player // empty when nobody is online
	Motd       string   // plain-text variant, lines joined with "\n"
	Version    string
	Gamemode   string // bedrock only
	Icon       string // data URI, java only, may be empty
	Software   string
}

// PlayerNames returns the player names in API order. Never nil.
func (r *Result) PlayerNames() []string {
	names := make([]string, 0, len(r.PlayerList))
	for _, p := range r.PlayerList {
		names = append(names, p.Name)
	}
	return names
}

// HTTPError reports a non-2xx answer from the status API.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	s := e.Status
	if s == "" {
		s = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return "status API returned " + s
}

// ---- wire document ----

// lines accepts either a JSON string or an array of strings.
type lines []string

func (l *lines) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = lines{one}
	return nil
}

func (l lines) text() string {
	return strings.Join(l, "\n")
}

type wirePlayer struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type wireStatus struct {
	Online  *bool `json:"online"`
	Players *struct {
		Online int          `json:"online"`
		Max    int          `json:"max"`
		List   []wirePlayer `json:"list"`
	} `json:"players"`
	Motd *struct {
		Raw   lines `json:"raw"`
		Clean lines `json:"clean"`
		HTML  lines `json:"html"`
	} `json:"motd"`
	Version  string `json:"version"`
	Gamemode string `json:"gamemode"`
	Icon     string `json:"icon"`
	Software string `json:"software"`
}

// decodeStatus turns a raw body into a Result.
// Only "online" is mandatory; everything else may be absent.
func decodeStatus(body []byte) (*Result, error) {
	var w wireStatus
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Online == nil {
		return nil, fmt.Errorf("%w: missing online flag", ErrMalformed)
	}

	r := &Result{
		Online:     *w.Online,
		PlayerList: []Player{},
		Version:    w.Version,
		Gamemode:   w.Gamemode,
		Icon:       w.Icon,
		Software:   w.Software,
	}

	if w.Players != nil {
		r.Players = w.Players.Online
		r.MaxPlayers = w.Players.Max
		for _, p := range w.Players.List {
			id, err := uuid.Parse(p.UUID)
			if err != nil {
				id = uuid.Nil
			}
			r.PlayerList = append(r.PlayerList, Player{Name: p.Name, UUID: id})
		}
	}

	if w.Motd != nil {
		switch {
		case len(w.Motd.Clean) > 0:
			r.Motd = w.Motd.Clean.text()
		case len(w.Motd.Raw) > 0:
			r.Motd = w.Motd.Raw.text()
		default:
			r.Motd = w.Motd.HTML.text()
		}
	}

	return r, nil
}
