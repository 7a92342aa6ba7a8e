package directory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/directory"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "strips at and lowercases", raw: "@Alex.Wave", want: "alex.wave"},
		{name: "plain handle", raw: "bob", want: "bob"},
		{name: "trims whitespace", raw: "  @carol  ", want: "carol"},
		{name: "digits allowed", raw: "dev42.test", want: "dev42.test"},
		{name: "too short", raw: "al", wantErr: true},
		{name: "too long", raw: "@abcdefghijabcdefghijabcdefghijx", wantErr: true},
		{name: "consecutive dots", raw: "alex..wave", wantErr: true},
		{name: "leading dot", raw: ".alex", wantErr: true},
		{name: "trailing dot", raw: "alex.", wantErr: true},
		{name: "illegal characters", raw: "alex_wave", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := directory.NormalizeHandle(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, directory.ErrInvalidHandleFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/handles/alex.wave", r.URL.Path)
		json.NewEncoder(w).Encode(directory.Resolution{
			Wallet:       "0x000000000000000000000000000000000000aaaa",
			DevicePubKey: "02abcd",
			Verified:     true,
		})
	}))
	defer srv.Close()

	client := directory.NewClient(srv.URL, time.Second)
	res, err := client.ResolveHandle(context.Background(), "@Alex.Wave")
	require.NoError(t, err)
	assert.Equal(t, "0x000000000000000000000000000000000000aaaa", res.Wallet)
	assert.True(t, res.Verified)
}

func TestResolveHandleNotRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := directory.NewClient(srv.URL, time.Second)
	_, err := client.ResolveHandle(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestResolveHandleRejectsBadFormatWithoutNetworkCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := directory.NewClient(srv.URL, time.Second)
	_, err := client.ResolveHandle(context.Background(), "a..b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, directory.ErrInvalidHandleFormat))
	assert.False(t, called)
}

func TestRegisterHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alex.wave", body["handle"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := directory.NewClient(srv.URL, time.Second)
	err := client.RegisterHandle(context.Background(), "@Alex.Wave", "0xaaaa", "02abcd", "0xsig")
	require.NoError(t, err)
}

func TestRegisterHandleConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := directory.NewClient(srv.URL, time.Second)
	err := client.RegisterHandle(context.Background(), "taken", "0xaaaa", "02abcd", "0xsig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")
}
