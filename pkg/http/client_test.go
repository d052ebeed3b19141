package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"score":42}`))
	}))
	defer srv.Close()

	var out struct {
		Score int `json:"score"`
	}
	err := NewClient(WithTimeout(time.Second)).SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		Headers:     map[string]string{"X-Token": "secret"},
		QueryParams: url.Values{"symbol": {"AAPL"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Score)
}

func TestClientStatusAndDecodeErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient()
	opts := &RequestOptions{Method: MethodGet, URL: srv.URL}
	var dest map[string]interface{}

	err := c.SendAndParse(context.Background(), opts, &dest)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, "not json", statusErr.Body)
	assert.True(t, statusErr.Temporary())

	status.Store(http.StatusNotFound)
	err = c.SendAndParse(context.Background(), opts, &dest)
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Temporary())

	status.Store(http.StatusOK)
	err = c.SendAndParse(context.Background(), opts, &dest)
	assert.ErrorIs(t, err, ErrDecodeResponse)

	var raw []byte
	require.NoError(t, c.SendAndParse(context.Background(), opts, &raw))
	assert.Equal(t, "not json", string(raw))
}
