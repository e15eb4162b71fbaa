package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/interfaces/httpapi"
	"dex_watch/internal/kvstore"
	"dex_watch/internal/mocks"
	"dex_watch/internal/service"
	"dex_watch/internal/watch"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	srv    *httptest.Server
	source *mocks.MockQuoteSource
	cache  *watch.QuoteCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	syncStore := kvstore.New(kvstore.Sync, kvstore.NewMemoryBackend())
	cache := watch.NewQuoteCache(kvstore.New(kvstore.Local, kvstore.NewMemoryBackend()))
	source := mocks.NewMockQuoteSource(ctrl)

	svc := service.NewWatchService(watch.NewWatchList(syncStore), cache, watch.NewWidgetFlag(syncStore), source, nil, nil)
	srv := httptest.NewServer(httpapi.NewServer(svc).Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, source: source, cache: cache}
}

func (f *fixture) request(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (f *fixture) resolves(ids ...string) {
	for _, id := range ids {
		f.source.EXPECT().
			ResolveMeta(gomock.Any(), id).
			Return(domain.ItemMeta{Symbol: strings.ToUpper(id)}, nil).
			Times(1)
	}
}

func TestServer_AddAndList(t *testing.T) {
	f := newFixture(t)
	f.resolves("a")

	resp, body := f.request(t, http.MethodPost, "/api/watchlist", `{"id":"A"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "a", body["item"].(map[string]any)["id"])

	resp, body = f.request(t, http.MethodGet, "/api/watchlist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["items"], 1)
}

func TestServer_AddErrors(t *testing.T) {
	f := newFixture(t)
	f.resolves("a", "b", "c")
	for _, id := range []string{"a", "b", "c"} {
		resp, _ := f.request(t, http.MethodPost, "/api/watchlist", fmt.Sprintf(`{"id":%q}`, id))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate", `{"id":"B"}`, http.StatusConflict},
		{"capacity", `{"id":"d"}`, http.StatusUnprocessableEntity},
		{"empty id", `{"id":"  "}`, http.StatusBadRequest},
		{"invalid json", `{"id":`, http.StatusBadRequest},
		{"unknown field", `{"symbol":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.request(t, http.MethodPost, "/api/watchlist", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_AddResolveErrors(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().ResolveMeta(gomock.Any(), "nope").Return(domain.ItemMeta{}, domain.ErrNotFound)
	f.source.EXPECT().ResolveMeta(gomock.Any(), "down").
		Return(domain.ItemMeta{}, domain.NewNetworkError("fetch", errors.New("timeout")))

	resp, _ := f.request(t, http.MethodPost, "/api/watchlist", `{"id":"nope"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.request(t, http.MethodPost, "/api/watchlist", `{"id":"down"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_ReplaceAndRemove(t *testing.T) {
	f := newFixture(t)

	resp, body := f.request(t, http.MethodPut, "/api/watchlist", `{"items":[{"id":"a","symbol":"A"},{"id":"A"},{"id":"b","symbol":"B"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["items"], 2)

	resp, _ = f.request(t, http.MethodPut, "/api/watchlist", `{"items":[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = f.request(t, http.MethodDelete, "/api/watchlist/a", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.request(t, http.MethodDelete, "/api/watchlist/a", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = f.request(t, http.MethodGet, "/api/watchlist", "")
	require.Len(t, body["items"], 1)
}

func TestServer_Widget(t *testing.T) {
	f := newFixture(t)

	_, body := f.request(t, http.MethodGet, "/api/widget", "")
	require.Equal(t, true, body["enabled"])

	resp, _ := f.request(t, http.MethodPut, "/api/widget", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.request(t, http.MethodGet, "/api/widget", "")
	require.Equal(t, false, body["enabled"])

	resp, _ = f.request(t, http.MethodPut, "/api/widget", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_QuotesAndIcon(t *testing.T) {
	f := newFixture(t)
	price := decimal.RequireFromString("0.5")
	require.NoError(t, f.cache.Replace(context.Background(), domain.QuoteMap{"a": domain.NewQuote(&price, nil, time.Now())}))

	resp, body := f.request(t, http.MethodGet, "/api/quotes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["quotes"], "a")

	resp, _ = f.request(t, http.MethodGet, "/api/items/a/icon", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.request(t, http.MethodGet, "/api/watchlist/a", "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestClient_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.resolves("a")
	f.source.EXPECT().ResolveMeta(gomock.Any(), "down").
		Return(domain.ItemMeta{}, domain.NewNetworkError("fetch", errors.New("timeout")))

	c := httpapi.NewClient(f.srv.URL)
	ctx := context.Background()

	item, err := c.Add(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "A", item.Symbol)

	_, err = c.Add(ctx, "a")
	require.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = c.Add(ctx, "down")
	require.True(t, domain.IsTransportFailure(err))

	items, err := c.Replace(ctx, []domain.Item{{ID: "a", Symbol: "A"}, {ID: "b"}})
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = c.Replace(ctx, []domain.Item{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, c.Remove(ctx, "b"))
	items, err = c.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Item{{ID: "a", Symbol: "A"}}, items)

	require.NoError(t, c.SetWidget(ctx, false))
	enabled, err := c.Widget(ctx)
	require.NoError(t, err)
	require.False(t, enabled)

	quotes, err := c.Quotes(ctx)
	require.NoError(t, err)
	require.Empty(t, quotes)

	rows, err := c.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Stale)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", domain.ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("x: %w", domain.ErrCapacityExceeded), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrEmptyID, http.StatusBadRequest},
		{domain.NewNetworkError("fetch", errors.New("eof")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.status, httpapi.StatusFor(tt.err), tt.err.Error())
	}
}
