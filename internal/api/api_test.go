package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/auth"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/relay"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/repository"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/services"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store/sqlite"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/txn"
)

const testOwnerID = "prov:0xabc"

type testServer struct {
	srv    *httptest.Server
	store  store.Store
	worker *relay.Worker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	st := sqlite.NewWithDB(db)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	signers := keys.NewSource(st.Keys())
	svc := services.NewLicenseService(txn.NewBuilder(), repository.NewWriter(st.Outbox()), repository.NewReader(st.Ledger()), zerolog.Nop())
	router := NewRouter(NewLicenseHandler(svc, signers), NewHealthHandler(func() bool { return true }), auth.GatewayExtractor{})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	w := relay.NewWorker(st.Outbox(), st.Ledger(), signers, relay.Config{BatchSize: 10, Interval: time.Millisecond}, zerolog.Nop())
	return &testServer{srv: srv, store: st, worker: w}
}

func (s *testServer) post(t *testing.T, path string, body any, ownerID string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req.Header.Set(auth.HeaderAuthorizerID, ownerID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAndVerifyLicense(t *testing.T) {
	s := newTestServer(t)

	resp := s.post(t, "/license/verify", nil, testOwnerID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[model.VerifyResult](t, resp)
	assert.False(t, v.Verified)
	require.NotNil(t, v.Reason)
	assert.Equal(t, services.ReasonNoTrail, *v.Reason)

	resp = s.post(t, "/license/create", `{
		"ptr": "user-123",
		"origin": "com.example.app",
		"tags": ["email_address", "loyalty points"],
		"uses": [{"usecases": ["attribution"], "destinations": ["*"]}],
		"terms": "terms",
		"expiry": "2030-01-01T00:00:00Z",
		"signature": "user-sig"
	}`, testOwnerID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.CreateResult](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "user-sig", created.Signature)
	assert.False(t, created.Timestamp.IsZero())

	_, err := s.worker.ProcessOnce(context.Background())
	require.NoError(t, err)

	owner, err := model.ParseOwner(testOwnerID)
	require.NoError(t, err)
	md, err := s.store.Ledger().Metadata(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, md.Blocks, 1)
	block, err := s.store.Ledger().Block(context.Background(), owner, md.Blocks[0])
	require.NoError(t, err)
	require.Len(t, block.Transactions, 2)
	license := block.Transactions[1]
	assert.Equal(t, created.ID, license.ID)
	assert.Equal(t, license.AppSignature, created.Signature)
	assert.Equal(t, "user-sig", license.UserSignature)

	resp = s.post(t, "/license/verify", nil, testOwnerID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[model.VerifyResult](t, resp)
	assert.True(t, v.Verified)
	assert.Nil(t, v.Reason)
}

func TestCreateLicenseWithoutUsesIsNotVerified(t *testing.T) {
	s := newTestServer(t)

	resp := s.post(t, "/license/create", map[string]any{
		"ptr": "p", "origin": "o", "terms": "t", "signature": "s",
	}, testOwnerID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_, err := s.worker.ProcessOnce(context.Background())
	require.NoError(t, err)

	v := decode[model.VerifyResult](t, s.post(t, "/license/verify", nil, testOwnerID))
	assert.False(t, v.Verified)
	require.NotNil(t, v.Reason)
	assert.Equal(t, services.ReasonNoUsesGranted, *v.Reason)
}

func TestCreateTitle(t *testing.T) {
	s := newTestServer(t)

	resp := s.post(t, "/title/create", map[string]any{
		"ptr": "p", "origin": "o", "tags": []string{"photos"}, "signature": "s",
	}, testOwnerID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_, err := s.worker.ProcessOnce(context.Background())
	require.NoError(t, err)

	v := decode[model.VerifyResult](t, s.post(t, "/license/verify", nil, testOwnerID))
	assert.False(t, v.Verified)
	assert.Equal(t, services.ReasonNoPermissive, *v.Reason)
}

func TestCreateLicenseRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]any{
		"malformed json":    `{"ptr":`,
		"missing terms":     map[string]any{"ptr": "p", "origin": "o", "signature": "s"},
		"missing signature": map[string]any{"ptr": "p", "origin": "o", "terms": "t"},
		"missing ptr":       map[string]any{"origin": "o", "terms": "t", "signature": "s"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := s.post(t, "/license/create", body, testOwnerID)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	n, err := s.worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "rejected requests must not enqueue transactions")
}

func TestRoutesRequireAuthorization(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/license/create", "/license/verify", "/title/create"} {
		resp := s.post(t, path, map[string]any{}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	resp2, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	h := NewHealthHandler(nil)
	rr := httptest.NewRecorder()
	h.CheckHealth(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "unhealthy")
}

func TestRequestIDIsPropagated(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, req)
	assert.Equal(t, "req-1", rr.Header().Get(HeaderRequestID))
}
