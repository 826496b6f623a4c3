// internal/relay/relay_test.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
	"github.com/tamzrod/mcstatus-relay/internal/statusapi"
)

// ---- fake emitter ----

type emission struct {
	name    notify.Name
	payload any
}

type recorder struct {
	mu  sync.Mutex
	got []emission
}

func (r *recorder) Emit(_ context.Context, name notify.Name, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, emission{name: name, payload: payload})
	return nil
}

func (r *recorder) all() []emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emission(nil), r.got...)
}

func (r *recorder) only(t *testing.T) emission {
	t.Helper()
	got := r.all()
	require.Len(t, got, 1, "expected exactly one emission")
	return got[0]
}

// ---- helpers ----

const javaURL = "https://api.mcsrvstat.us/3/play.example.com:25565"

func newRelay(t *testing.T, reg prometheus.Registerer) (*Relay, *recorder) {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	api, err := statusapi.New(statusapi.Config{UserAgent: "test", HTTPClient: hc})
	require.NoError(t, err)

	var m *Metrics
	if reg != nil {
		m = NewMetrics(reg)
	}
	rec := &recorder{}
	r, err := New(api, rec, m)
	require.NoError(t, err)
	return r, rec
}

func abc() notify.PingRequest {
	return notify.PingRequest{Hostname: "play.example.com", Port: 25565, Identifier: "abc"}
}

// ---- tests ----

func TestNew(t *testing.T) {
	_, err := New(nil, &recorder{}, nil)
	assert.Error(t, err)
	_, err = New(&statusapi.Client{}, nil, nil)
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("should emit update for an online server", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusOK,
			`{"online":true,"players":{"online":3,"max":20},"motd":{"clean":["Welcome"]},"version":"1.20"}`))

		// when
		require.NoError(t, r.Handle(ctx, abc()))

		// then
		e := rec.only(t)
		assert.Equal(t, notify.Update, e.name)
		p := e.payload.(notify.UpdatePayload)
		assert.Equal(t, "abc", p.Identifier)
		assert.True(t, p.Online)
		assert.Equal(t, 3, p.Players)
		assert.Equal(t, 20, p.MaxPlayers)
		assert.Equal(t, "Welcome", p.Motd)
		assert.Equal(t, "1.20", p.Version)
		assert.Equal(t, []string{}, p.PlayerList)
		assert.GreaterOrEqual(t, p.Latency, 0.0)
	})
	t.Run("should emit timeout message", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", javaURL, httpmock.NewErrorResponder(context.DeadlineExceeded))

		// when
		require.NoError(t, r.Handle(ctx, abc()))

		// then
		e := rec.only(t)
		assert.Equal(t, notify.Error, e.name)
		assert.Equal(t, notify.ErrorPayload{
			Identifier: "abc",
			Message:    "Timed-out contacting Minecraft server",
		}, e.payload)
	})
	t.Run("should emit error for HTTP 500 without body", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusInternalServerError, ""))

		// when
		require.NoError(t, r.Handle(ctx, abc()))

		// then
		e := rec.only(t)
		assert.Equal(t, notify.Error, e.name)
		p := e.payload.(notify.ErrorPayload)
		assert.Equal(t, "abc", p.Identifier)
		assert.Contains(t, p.Message, "500")
	})
	t.Run("should emit error for missing online flag", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusOK, `{"players":{}}`))

		// when
		require.NoError(t, r.Handle(ctx, abc()))

		// then
		e := rec.only(t)
		assert.Equal(t, notify.Error, e.name)
		assert.NotEmpty(t, e.payload.(notify.ErrorPayload).Message)
	})
	t.Run("should pass raw message of unknown faults", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", javaURL, httpmock.NewErrorResponder(errors.New("tls: bad certificate")))

		// when
		require.NoError(t, r.Handle(ctx, abc()))

		// then
		assert.Contains(t, rec.only(t).payload.(notify.ErrorPayload).Message, "tls: bad certificate")
	})
	t.Run("should use bedrock endpoint when asked", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)
		httpmock.RegisterResponder("GET", "https://api.mcsrvstat.us/bedrock/3/play.example.com:19132",
			httpmock.NewStringResponder(http.StatusOK, `{"online":true,"players":{"online":1,"max":5,"list":[{"name":"steve"}]},"gamemode":"Creative"}`))
		req := notify.PingRequest{Hostname: "play.example.com", Port: 19132, Identifier: "b", Bedrock: true}

		// when
		require.NoError(t, r.Handle(ctx, req))

		// then
		p := rec.only(t).payload.(notify.UpdatePayload)
		assert.Equal(t, "Creative", p.Gamemode)
		assert.Equal(t, []string{"steve"}, p.PlayerList)
		info := httpmock.GetCallCountInfo()
		assert.Equal(t, 1, info["GET https://api.mcsrvstat.us/bedrock/3/play.example.com:19132"])
	})
	t.Run("should reject invalid request without calling the API", func(t *testing.T) {
		// given
		r, rec := newRelay(t, nil)

		// when
		require.NoError(t, r.Handle(ctx, notify.PingRequest{Hostname: "", Port: 25565, Identifier: "x"}))

		// then
		e := rec.only(t)
		assert.Equal(t, notify.Error, e.name)
		assert.Equal(t, "x", e.payload.(notify.ErrorPayload).Identifier)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})
}

func TestHandleEchoesIdentifier(t *testing.T) {
	ids := []string{"", "abc", "a:b/c?d", "with \"quotes\" and \n newline", "ünïcødé|,;"}
	ctx := context.Background()

	for _, id := range ids {
		t.Run("update "+id, func(t *testing.T) {
			r, rec := newRelay(t, nil)
			httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusOK, `{"online":false}`))
			req := abc()
			req.Identifier = id
			require.NoError(t, r.Handle(ctx, req))
			assert.Equal(t, id, rec.only(t).payload.(notify.UpdatePayload).Identifier)
		})
		t.Run("error "+id, func(t *testing.T) {
			r, rec := newRelay(t, nil)
			httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusBadGateway, ""))
			req := abc()
			req.Identifier = id
			require.NoError(t, r.Handle(ctx, req))
			assert.Equal(t, id, rec.only(t).payload.(notify.ErrorPayload).Identifier)
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, _ := newRelay(t, reg)
	httpmock.RegisterResponder("GET", javaURL, httpmock.NewStringResponder(http.StatusOK, `{"online":true,"players":{"online":7,"max":20}}`))
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, abc()))
	require.NoError(t, r.Handle(ctx, notify.PingRequest{Identifier: "bad"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requests.WithLabelValues(string(OutcomeUpdate))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requests.WithLabelValues(string(OutcomeInvalid))))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.metrics.players.WithLabelValues("play.example.com:25565")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.metrics.inFlight))
}

func TestHandleRejectsNonUTF8Hostname(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, rec := newRelay(t, reg)
	httpmock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusOK, `{"online":true,"players":{"online":1,"max":5}}`))

	req := notify.PingRequest{Hostname: "a\xffb", Port: 25565, Identifier: "abc"}
	require.NotPanics(t, func() {
		require.NoError(t, r.Handle(context.Background(), req))
	})

	got := rec.only(t)
	assert.Equal(t, notify.Error, got.name)
	assert.Equal(t, "abc", got.payload.(notify.ErrorPayload).Identifier)
	assert.Zero(t, httpmock.GetTotalCallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requests.WithLabelValues(string(OutcomeInvalid))))
	assert.Equal(t, 0, testutil.CollectAndCount(r.metrics.players))
}

func TestPlayersGaugeIsBounded(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	for i := 0; i < MaxPlayerSeries+10; i++ {
		m.setPlayers(fmt.Sprintf("mc%d.example.com", i), 25565, i)
	}
	assert.Equal(t, MaxPlayerSeries, testutil.CollectAndCount(m.players))

	// known targets still update once the cap is reached
	m.setPlayers("mc0.example.com", 25565, 42)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.players.WithLabelValues("mc0.example.com:25565")))
}

func TestPlayersGaugeSkipsInvalidLabel(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NotPanics(t, func() { m.setPlayers("a\xffb", 25565, 1) })
	assert.Equal(t, 0, testutil.CollectAndCount(m.players))
	assert.Empty(t, m.targets)
}
