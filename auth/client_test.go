package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONWithToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "name,picture", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Amy"}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSONWithToken(context.Background(), srv.URL+"/me", "tok", url.Values{"fields": {"name,picture"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Amy", out.Name)
}

func TestGetJSONWithToken_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	var out map[string]any
	err := c.GetJSONWithToken(context.Background(), srv.URL, "", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "nope\n", string(statusErr.Body))
}
