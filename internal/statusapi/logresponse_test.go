// internal/statusapi/logresponse_test.go
package statusapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestExtractBodyForLog(t *testing.T) {
	u, _ := url.Parse("https://api.mcsrvstat.us/3/h:1")
	t.Run("should return copy of the body", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(strings.NewReader("test")),
			Request: &http.Request{URL: u},
		}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Equal(t, "test", x)
			rest, _ := io.ReadAll(r.Body)
			assert.Equal(t, "test", string(rest))
		}
	})
	t.Run("should elide icons from JSON bodies", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(strings.NewReader(`{"online":true,"icon":"data:image/png;base64,AAAA"}`)),
			Request: &http.Request{URL: u},
			Header:  http.Header{headerContentTypeKey: []string{"application/json; charset=utf-8"}},
		}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Equal(t, map[string]any{"online": true, "icon": "(elided)"}, x)
		}
	})
	t.Run("should return empty when no body", func(t *testing.T) {
		r := &http.Response{Request: &http.Request{URL: u}}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Nil(t, x)
		}
	})
	t.Run("should return error", func(t *testing.T) {
		r := &http.Response{
			Request: &http.Request{URL: u},
			Body:    io.NopCloser(iotest.ErrReader(errors.New("custom error"))),
		}
		_, err := extractBodyForLog(r)
		assert.Error(t, err)
	})
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "200 OK", statusText(&http.Response{StatusCode: 200}))
	assert.Equal(t, "429 Too Many Requests", statusText(&http.Response{StatusCode: 429}))
}
