package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves canned secrets the way the Vault KV and database
// engines shape them.
func fakeVault(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/secret/directus", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "unit-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"request_id": "r1",
			"lease_duration": 0,
			"data": {"username": "kv-user", "password": "kv-pass", "database": "kv-db"}
		}`))
	})
	mux.HandleFunc("GET /v1/database/creds/directus-backup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"request_id": "r2",
			"lease_duration": 300,
			"data": {"username": "v-dyn-user", "password": "v-dyn-pass"}
		}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": []}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetStaticCredentials(t *testing.T) {
	srv := fakeVault(t)
	client, err := NewClient(context.Background(),
		WithAddress(srv.URL),
		WithToken("unit-token"),
	)
	require.NoError(t, err)

	creds, err := client.GetStaticCredentials(context.Background(), "secret/directus")
	require.NoError(t, err)
	assert.Equal(t, "kv-user", creds.Username)
	assert.Equal(t, "kv-pass", creds.Password)
	assert.Equal(t, "kv-db", creds.Database)
}

func TestGetStaticCredentials_MissingPath(t *testing.T) {
	srv := fakeVault(t)
	client, err := NewClient(context.Background(),
		WithAddress(srv.URL),
		WithToken("unit-token"),
	)
	require.NoError(t, err)

	_, err = client.GetStaticCredentials(context.Background(), "secret/absent")
	assert.Error(t, err)
}

func TestGetDynamicCredentials(t *testing.T) {
	srv := fakeVault(t)
	client, err := NewClient(context.Background(), WithAddress(srv.URL))
	require.NoError(t, err)

	creds, err := client.GetDynamicCredentials(context.Background(), "database/creds/directus-backup")
	require.NoError(t, err)
	assert.Equal(t, "v-dyn-user", creds.Username)
	assert.Equal(t, "v-dyn-pass", creds.Password)
	assert.Equal(t, int64(300), int64(creds.TTL.Seconds()))
}
