package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
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

var testOwner = model.Owner{Provider: "prov", Address: "addr"}

// seededStore returns a store holding one block with a title and a license.
func seededStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ctl.db"))
	require.NoError(t, err)
	st := sqlite.NewWithDB(db)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	signers := keys.NewSource(st.Keys())
	signer, err := signers.Get(ctx, testOwner)
	require.NoError(t, err)
	svc := services.NewLicenseService(txn.NewBuilder(), repository.NewWriter(st.Outbox()), repository.NewReader(st.Ledger()), zerolog.Nop())
	_, err = svc.Create(ctx, testOwner, signer, services.CreateLicenseRequest{
		Ptr: "ptr", Origin: "com.example", Tags: []string{"photo_video", "selfies"}, Terms: "terms", Signature: "sig",
		Uses: []services.LicenseUse{{UseCases: []string{"analytics"}}},
	})
	require.NoError(t, err)

	w := relay.NewWorker(st.Outbox(), st.Ledger(), signers, relay.Config{BatchSize: 10, Interval: time.Millisecond}, zerolog.Nop())
	_, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	return st
}

func TestRunVerify(t *testing.T) {
	st := seededStore(t)

	var out bytes.Buffer
	require.NoError(t, runVerify(context.Background(), st, testOwner, &out))
	var res model.VerifyResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Verified)

	out.Reset()
	require.NoError(t, runVerify(context.Background(), st, model.Owner{Provider: "prov", Address: "other"}, &out))
	assert.Contains(t, out.String(), services.ReasonNoTrail)

	assert.Error(t, runVerify(context.Background(), st, model.Owner{}, &out))
}

func TestRunInspect(t *testing.T) {
	st := seededStore(t)

	var out bytes.Buffer
	require.NoError(t, runInspect(context.Background(), st, testOwner, &out))

	sc := bufio.NewScanner(&out)
	require.True(t, sc.Scan())
	var b blockView
	require.NoError(t, json.Unmarshal(sc.Bytes(), &b))
	assert.False(t, sc.Scan(), "one block expected")

	assert.Equal(t, int64(1), b.Seq)
	require.Len(t, b.Transactions, 2)
	title, license := b.Transactions[0], b.Transactions[1]
	require.NotNil(t, title.Title)
	assert.Equal(t, "ptr", title.Title.Ptr)
	assert.Equal(t, []string{"photo_video", "custom:selfies"}, title.Title.Tags)
	require.NotNil(t, license.License)
	assert.Equal(t, []string{"analytics"}, license.License.Uses)
	assert.Equal(t, title.ID, license.AssetRef)
	assert.Empty(t, title.Error)
}

func TestInspectTxnReportsBadContents(t *testing.T) {
	v := inspectTxn(&model.Transaction{ID: "x", Contents: "!!not base64"})
	assert.NotEmpty(t, v.Error)
	assert.Nil(t, v.Title)
	assert.Nil(t, v.License)
}

func TestRunVocab(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runVocab(&out))
	s := out.String()
	assert.Contains(t, s, "email_address")
	assert.Contains(t, s, "ai_training")
	assert.Contains(t, s, `"custom:"`)
}

func TestRunRemoteVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/license/verify" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Header.Get("Authorization") == "Bearer "+auth.LocalDevAPIKey:
			_, _ = w.Write([]byte(`{"verified":true,"reason":null}`))
		case r.Header.Get(auth.HeaderAuthorizerID) == "p:a":
			_, _ = w.Write([]byte(`{"verified":false,"reason":"No trail found."}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","code":401}`))
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runRemoteVerify(srv.URL, auth.LocalDevAPIKey, "", &out))
	assert.Equal(t, "verified", strings.TrimSpace(out.String()))

	out.Reset()
	require.NoError(t, runRemoteVerify(srv.URL, "", "p:a", &out))
	assert.Equal(t, "not verified: No trail found.", strings.TrimSpace(out.String()))

	assert.Error(t, runRemoteVerify(srv.URL, "wrong", "", &out))
}
