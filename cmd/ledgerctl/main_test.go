package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)

	var keys map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))

	priv, err := service.ParseSigningSeed(keys["seed"])
	require.NoError(t, err)
	pub, err := service.DecodePublicKey(keys["public_key"])
	require.NoError(t, err)
	assert.Equal(t, pub, priv.Public().(ed25519.PublicKey))
}

func TestHashKey(t *testing.T) {
	out, err := run(t, "hash-key", "operator-secret")
	require.NoError(t, err)

	ok, err := service.NewArgon2HashService().Verify("operator-secret", string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignEntry(t *testing.T) {
	seed, pub, err := service.GenerateKeyPair()
	require.NoError(t, err)

	out, err := run(t, "sign", "entry",
		"--seed", seed,
		"--sender", "alice",
		"--receiver", "bob",
		"--amount", "25.5",
		"--nonce", "n-1",
		"--timestamp", "1700000000000",
	)
	require.NoError(t, err)

	var req dto.SignedEntryRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, pub, req.SenderPublicKey)
	assert.Equal(t, "PEER_TRANSFER", req.Kind)
	assert.Equal(t, "n-1", req.Nonce)
	assert.NotEmpty(t, req.ID)

	entry := req.ToDomain()
	assert.True(t, service.NewEd25519SigningService().VerifyEntry(&entry))

	entry.Amount = dto.MustAmount("26")
	assert.False(t, service.NewEd25519SigningService().VerifyEntry(&entry))
}

func TestSignEntry_Rejects(t *testing.T) {
	seed, _, err := service.GenerateKeyPair()
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
	}{
		{"bad amount", []string{"--seed", seed, "--sender", "a", "--receiver", "b", "--amount", "ten"}},
		{"bad kind", []string{"--seed", seed, "--sender", "a", "--receiver", "b", "--amount", "1", "--kind", "GIFT"}},
		{"bad seed", []string{"--seed", "short", "--sender", "a", "--receiver", "b", "--amount", "1"}},
		{"missing receiver", []string{"--seed", seed, "--sender", "a", "--amount", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"sign", "entry"}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestSignSession(t *testing.T) {
	seed, pub, err := service.GenerateKeyPair()
	require.NoError(t, err)

	out, err := run(t, "sign", "session", "--seed", seed, "--account", "alice")
	require.NoError(t, err)

	var req dto.OpenSessionRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, "alice", req.AccountID)

	payload := domain.SessionChallengePayload(req.AccountID, req.Timestamp, req.Nonce)
	assert.True(t, service.NewEd25519SigningService().Verify(payload, req.Signature, pub))
}

func TestSignSession_SeedFromEnv(t *testing.T) {
	seed, _, err := service.GenerateKeyPair()
	require.NoError(t, err)
	t.Setenv("VLG_SIGNING_SEED", seed)

	_, err = run(t, "sign", "session", "--account", "alice")
	assert.NoError(t, err)
}

func newAdminServer(t *testing.T, hits *int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("X-Authority-Key") != "root-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code":"SEC_006","message":"invalid authority key"}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReconcile_Account(t *testing.T) {
	var hits int32
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		gotPath = r.Method + " " + r.URL.Path
		assert.Equal(t, "root-key", r.Header.Get("X-Authority-Key"))
		_, _ = w.Write([]byte(`{"data":{"account_id":"alice","is_consistent":true},"request_id":"r"}`))
	}))
	defer srv.Close()

	out, err := run(t, "reconcile", "alice", "--server", srv.URL, "--authority-key", "root-key")
	require.NoError(t, err)
	assert.Equal(t, "GET /api/v1/admin/reconcile/alice", gotPath)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	var report dto.ReconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "alice", report.AccountID)
	assert.True(t, report.IsConsistent)
}

func TestReconcile_All(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		_, _ = w.Write([]byte(`{"data":[{"account_id":"a"},{"account_id":"b"}]}`))
	}))
	defer srv.Close()

	out, err := run(t, "reconcile", "--server", srv.URL, "--authority-key", "root-key")
	require.NoError(t, err)
	assert.Equal(t, "POST /api/v1/admin/reconcile", gotPath)

	var reports []dto.ReconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.Len(t, reports, 2)
}

func TestSyncPrice(t *testing.T) {
	var hits int32
	srv := newAdminServer(t, &hits, http.StatusOK, `{"data":{"unit_price":"0.05"}}`)

	out, err := run(t, "sync-price", "--server", srv.URL, "--authority-key", "root-key")
	require.NoError(t, err)
	assert.Contains(t, out, `"unit_price": "0.05"`)
}

func TestAdmin_ClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := newAdminServer(t, &hits, http.StatusOK, `{"data":{}}`)

	_, err := run(t, "sync-price", "--server", srv.URL, "--authority-key", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEC_006")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAdmin_RequiresAuthorityKey(t *testing.T) {
	t.Setenv("VLG_AUTHORITY_KEY", "")

	_, err := run(t, "sync-price", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authority key")
}
