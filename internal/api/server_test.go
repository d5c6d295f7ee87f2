package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/certs"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/eligibility"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results map[string][]model.ComicMatch
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]model.ComicMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type testEnv struct {
	server *Server
	db     *testutil.TestDB
}

func newTestEnv(t *testing.T, searcher scanner.Searcher) *testEnv {
	t.Helper()

	rate := 0.02
	custom := testutil.TrustedSeller("custom")
	custom.CustomFeeRate = &rate

	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Sellers: []model.Seller{
			testutil.TrustedSeller("trusted"),
			testutil.NewSeller("rookie"),
			custom,
		},
		Sales: []model.Sale{
			testutil.CompletedSale("trusted", time.Now().AddDate(0, 0, -20), 1000),
			testutil.CompletedSale("trusted", time.Now().AddDate(0, 0, -10), 2000),
			testutil.CompletedSale("trusted", time.Now().AddDate(0, 0, -5), 3000),
		},
	})

	calc, err := fees.NewCalculator(fees.DefaultSchedule())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Deps{
		Store:      db.Storage,
		Calculator: calc,
		Policy:     eligibility.DefaultPolicy(),
		Logger:     logger,
	}
	if searcher != nil {
		deps.Identifier, err = scanner.NewIdentifier(searcher, db.Storage, scanner.DefaultThresholds(), logger)
		require.NoError(t, err)
	}

	server, err := NewServer(deps)
	require.NoError(t, err)
	return &testEnv{server: server, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFeeQuote(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantSource string
		wantStatus int
		wantErr    error
		want       model.FeeBreakdown
	}{
		{
			name:       "default schedule",
			body:       `{"gross": 100}`,
			wantStatus: http.StatusOK,
			wantSource: "schedule",
			want:       model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 375, ProcessorFeeCents: 320, NetCents: 9305},
		},
		{
			name:       "percent string override",
			body:       `{"gross": 100, "rate_override": "3%"}`,
			wantStatus: http.StatusOK,
			wantSource: "override",
			want:       model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 300, ProcessorFeeCents: 320, NetCents: 9380},
		},
		{
			name:       "object override beats seller rate",
			body:       `{"gross": 100, "seller_id": "custom", "rate_override": {"rate": 0.05}}`,
			wantStatus: http.StatusOK,
			wantSource: "override",
			want:       model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 500, ProcessorFeeCents: 320, NetCents: 9180},
		},
		{
			name:       "seller custom rate",
			body:       `{"gross": 100, "seller_id": "custom"}`,
			wantStatus: http.StatusOK,
			wantSource: "seller",
			want:       model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 200, ProcessorFeeCents: 320, NetCents: 9480},
		},
		{
			name:       "seller without custom rate uses schedule",
			body:       `{"gross": 100, "seller_id": "trusted"}`,
			wantStatus: http.StatusOK,
			wantSource: "schedule",
			want:       model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 375, ProcessorFeeCents: 320, NetCents: 9305},
		},
		{
			name:       "malformed override",
			body:       `{"gross": 100, "rate_override": [0.03]}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    common.ErrMalformedRate,
		},
		{
			name:       "zero gross",
			body:       `{"gross": 0}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    common.ErrInvalidAmount,
		},
		{
			name:       "unknown seller",
			body:       `{"gross": 10, "seller_id": "ghost"}`,
			wantStatus: http.StatusNotFound,
			wantErr:    common.ErrNotFound,
		},
		{
			name:       "unknown field",
			body:       `{"gross": 10, "tip": 2}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	env := newTestEnv(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/fees/quote", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				resp := decode[errorResponse](t, rec)
				assert.NotEmpty(t, resp.Error)
				if tt.wantErr != nil {
					assert.Contains(t, resp.Details, tt.wantErr.Error())
				}
				return
			}

			resp := decode[feeQuoteResponse](t, rec)
			assert.Equal(t, tt.want, resp.FeeBreakdown)
			assert.Equal(t, tt.wantSource, resp.RateSource)
			assert.Equal(t, resp.GrossAmountCents, resp.PlatformFeeCents+resp.ProcessorFeeCents+resp.NetCents)
		})
	}
}

func TestEligibility(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/v1/sellers/trusted/eligibility", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[eligibilityResponse](t, rec)
	assert.True(t, resp.CanTrade)
	assert.Empty(t, resp.Reasons)
	assert.Equal(t, 3, resp.Snapshot.CompletedTransactions)

	rec = env.do(t, http.MethodGet, "/v1/sellers/rookie/eligibility", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[eligibilityResponse](t, rec)
	assert.False(t, resp.CanTrade)
	assert.ElementsMatch(t, []eligibility.Reason{
		eligibility.ReasonTooFewTransactions,
		eligibility.ReasonNotVerified,
		eligibility.ReasonAccountTooNew,
	}, resp.Reasons)

	dispute := &model.Dispute{SellerID: "trusted", OpenedAt: time.Now().Add(-48 * time.Hour), Status: model.DisputeStatusOpen}
	require.NoError(t, env.db.Storage.SaveDispute(context.Background(), dispute))
	rec = env.do(t, http.MethodGet, "/v1/sellers/trusted/eligibility", "")
	resp = decode[eligibilityResponse](t, rec)
	assert.False(t, resp.CanTrade)
	assert.Equal(t, []eligibility.Reason{eligibility.ReasonRecentDispute}, resp.Reasons)

	rec = env.do(t, http.MethodGet, "/v1/sellers/ghost/eligibility", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/v1/scanner/queries",
		`{"title":"Amazing Spider-Man","issue_number":"300","publisher":"Marvel","year":1988}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[queriesResponse](t, rec)
	require.Len(t, resp.Queries, 7)
	assert.Equal(t, "Amazing Spider-Man 300", resp.Queries[0].Query)
	assert.Equal(t, model.StrategyFallback, resp.Queries[6].Strategy)
	assert.Equal(t, "Spider-Man", resp.Queries[6].Query)

	issue, publisher := "300", "Marvel"
	assert.Equal(t, matching.ComputeMatchHash(model.MatchKey{
		Title: "Amazing Spider-Man", Issue: &issue, Publisher: &publisher,
	}), resp.Hash)

	rec = env.do(t, http.MethodPost, "/v1/scanner/queries", `{"title":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queries":[]}`, rec.Body.String())
}

func TestQueries_TitleTokens(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name         string
		body         string
		wantFallback string
		wantCount    int
	}{
		{
			name:         "derived from title",
			body:         `{"title":"Amazing Spider-Man"}`,
			wantCount:    2,
			wantFallback: "Spider-Man",
		},
		{
			name:      "explicit empty omits fallback",
			body:      `{"title":"Amazing Spider-Man","title_tokens":[]}`,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/scanner/queries", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[queriesResponse](t, rec)
			require.Len(t, resp.Queries, tt.wantCount)

			var fallback string
			for _, q := range resp.Queries {
				if q.Strategy == model.StrategyFallback {
					fallback = q.Query
				}
			}
			assert.Equal(t, tt.wantFallback, fallback)
		})
	}
}

func TestIdentify(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]model.ComicMatch{
		"Saga 1": {{ExternalID: "saga-1", Title: "Saga", IssueNumber: "1", Publisher: "Image", Confidence: 0.95}},
	}}
	env := newTestEnv(t, searcher)

	rec := env.do(t, http.MethodPost, "/v1/scanner/identify", `{"ocr_text":"Image Comics\nSaga #1 (2012)"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[scanner.Result](t, rec)
	assert.Equal(t, scanner.BandHigh, result.Band)
	require.NotNil(t, result.Match)
	assert.Equal(t, "saga-1", result.Match.ExternalID)
	assert.Equal(t, "Image", result.Tokens.Publisher)

	rec = env.do(t, http.MethodPost, "/v1/scanner/identify", `{"tokens":{"title":"Saga","issue_number":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, scanner.BandHigh, decode[scanner.Result](t, rec).Band)

	rec = env.do(t, http.MethodPost, "/v1/scanner/identify", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentify_Unavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/v1/scanner/identify", `{"ocr_text":"Saga #1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIdentify_MetadataDown(t *testing.T) {
	env := newTestEnv(t, &fakeSearcher{err: common.ErrMetadataServer})
	rec := env.do(t, http.MethodPost, "/v1/scanner/identify", `{"tokens":{"title":"Saga","issue_number":"1"}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
}

func TestMatch(t *testing.T) {
	env := newTestEnv(t, nil)

	issue := "1"
	hash := matching.ComputeMatchHash(model.MatchKey{Title: "Saga", Issue: &issue})
	require.NoError(t, env.db.Storage.SaveVerifiedMatch(context.Background(), &model.VerifiedMatch{
		Hash:  hash,
		Match: model.ComicMatch{ExternalID: "saga-1", Title: "Saga", IssueNumber: "1", Confidence: 1},
	}))

	rec := env.do(t, http.MethodGet, "/v1/matches/"+hash, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	match := decode[model.VerifiedMatch](t, rec)
	assert.Equal(t, "saga-1", match.Match.ExternalID)
	assert.Equal(t, 1, match.UseCount)

	rec = env.do(t, http.MethodGet, "/v1/matches/000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/matches/not-a-hash", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewServer_Validation(t *testing.T) {
	calc, err := fees.NewCalculator(fees.DefaultSchedule())
	require.NoError(t, err)
	db := testutil.SetupTestDB(t)

	_, err = NewServer(Deps{Calculator: calc, Policy: eligibility.DefaultPolicy()})
	assert.Error(t, err)

	_, err = NewServer(Deps{Store: db.Storage, Policy: eligibility.DefaultPolicy()})
	assert.Error(t, err)

	_, err = NewServer(Deps{Store: db.Storage, Calculator: calc})
	assert.Error(t, err, "zero policy has no dispute window")
}

func TestListenAndServe_Shutdown(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_TLS(t *testing.T) {
	store := certs.NewStore(t.TempDir())
	tlsConfig, err := store.TLSConfig()
	require.NoError(t, err)

	calc, err := fees.NewCalculator(fees.DefaultSchedule())
	require.NoError(t, err)
	db := testutil.SetupTestDB(t)
	server, err := NewServer(Deps{
		Store:      db.Storage,
		Calculator: calc,
		Policy:     eligibility.DefaultPolicy(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		TLS:        tlsConfig,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx, addr) }()

	pemBytes, err := os.ReadFile(store.CertFile())
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(pemBytes))
	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}},
	}

	require.Eventually(t, func() bool {
		resp, err := client.Get("https://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
