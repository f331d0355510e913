package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignScope/internal/model"
	"campaignScope/internal/query"
	"campaignScope/internal/storage"
	"campaignScope/internal/storage/memory"
)

type brokenStore struct{}

func (brokenStore) List(context.Context) ([]model.CampaignRecord, error) {
	return nil, storage.ErrUnavailable
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListCampaigns(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	goal, _ := new(big.Int).SetString("1000000000000000000", 10)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Upsert(ctx, model.CampaignRecord{
		Address:      "0xAaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Creator:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Goal:         goal,
		Deadline:     big.NewInt(1735689600),
		OriginTxHash: "0x1234",
		ObservedAt:   base,
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, model.CampaignRecord{
		Address:      "0xCccccccccccccccccccccccccccccccccccccccc",
		Creator:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Goal:         big.NewInt(5),
		Deadline:     big.NewInt(6),
		OriginTxHash: "0x5678",
		ObservedAt:   base.Add(time.Minute),
	})
	require.NoError(t, err)

	router := NewRouter(query.NewService(store, nil), nil, nil)
	rec := do(t, router, http.MethodGet, "/campaigns")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "0xCccccccccccccccccccccccccccccccccccccccc", got[0]["address"])
	assert.Equal(t, "0xAaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", got[1]["address"])
	assert.Equal(t, "1000000000000000000", got[1]["goal"])
	assert.Equal(t, "1735689600", got[1]["deadline"])
	assert.Equal(t, "0x1234", got[1]["originTxHash"])
	assert.Equal(t, "2025-01-01T00:00:00Z", got[1]["observedAt"])
}

func TestListCampaignsEmptyArray(t *testing.T) {
	router := NewRouter(query.NewService(memory.NewStore(), nil), nil, nil)
	rec := do(t, router, http.MethodGet, "/campaigns")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListCampaignsUnavailable(t *testing.T) {
	router := NewRouter(query.NewService(brokenStore{}, nil), nil, nil)
	rec := do(t, router, http.MethodGet, "/campaigns")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "service unavailable", body.ErrMsg)
	assert.Equal(t, http.StatusServiceUnavailable, body.ErrMsgCode)
	assert.NotContains(t, rec.Body.String(), "store")
}

func TestHealthAndReady(t *testing.T) {
	live := false
	var dbErr error
	ready := AllReady(
		func(context.Context) error {
			if !live {
				return errors.New("catching up")
			}
			return nil
		},
		nil,
		func(context.Context) error { return dbErr },
	)
	router := NewRouter(query.NewService(memory.NewStore(), nil), ready, nil)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/ready").Code)

	live = true
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready").Code)

	dbErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	rec := do(t, router, http.MethodGet, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "5432")
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(query.NewService(memory.NewStore(), nil), nil, nil)
	do(t, router, http.MethodGet, "/campaigns")

	rec := do(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campaign_http_requests_total{method="GET",route="/campaigns",status="2xx"}`)
}

func TestServeAndWaitShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := NewServer(addr, NewRouter(query.NewService(memory.NewStore(), nil), nil, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeAndWait(ctx, nil, srv, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not stop")
	}
}
