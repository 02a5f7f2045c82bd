package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	graintest "github.com/grainwise/grainwise/internal/testing"

	"github.com/grainwise/grainwise/internal/clientdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quotes", r.URL.Path)
		assert.Equal(t, "ZC,ZS", r.URL.Query().Get("symbols"))

		_ = json.NewEncoder(w).Encode(quotesResponse{Quotes: []domain.Quote{
			{Symbol: "ZC", Open: 4.40, High: 4.55, Low: 4.38, Close: 4.50, Volume: 120000},
			{Symbol: "ZS", Open: 10.20, High: 10.40, Low: 10.15, Close: 10.35, Volume: 80000},
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"ZC", "ZS"})

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 4.50, quotes["ZC"].Close)
	assert.Equal(t, int64(80000), quotes["ZS"].Volume)
}

func TestGetQuotes_StaleFallback(t *testing.T) {
	cacheDB, cleanup := graintest.NewTestDB(t, "cache")
	defer cleanup()
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	// Seed an already-expired quote
	err := cacheRepo.Store("quotes", "ZC", domain.Quote{Symbol: "ZC", Close: 4.42}, -1)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", cacheRepo, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"ZC"})

	require.NoError(t, err, "stale cache should absorb the provider failure")
	assert.Equal(t, 4.42, quotes["ZC"].Close)
}

func TestGetQuotes_FailureWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil, zerolog.Nop())

	_, err := client.GetQuotes(context.Background(), []string{"ZC"})

	assert.Error(t, err)
}

func TestGetBasis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/basis", r.URL.Path)
		assert.Equal(t, "CORN", r.URL.Query().Get("commodity"))

		_ = json.NewEncoder(w).Encode(basisResponse{
			Commodity:    "CORN",
			Current:      -0.25,
			Observations: []float64{-0.40, -0.35, -0.30, -0.20},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil, zerolog.Nop())

	basis, err := client.GetBasis(context.Background(), domain.CommodityCorn)

	require.NoError(t, err)
	assert.Equal(t, -0.25, basis.Current)
	assert.Len(t, basis.History, 4)
}
