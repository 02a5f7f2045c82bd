package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	graintest "github.com/grainwise/grainwise/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCacheDB(t *testing.T) *sql.DB {
	t.Helper()
	db, cleanup := graintest.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return db.Conn()
}

func TestStore(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	data := map[string]interface{}{
		"symbol": "ZC",
		"price":  4.52,
	}

	err := repo.Store("quotes", "ZC", data, TTLQuote)
	require.NoError(t, err)

	var storedData string
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM quotes WHERE symbol = ?", "ZC").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed map[string]interface{}
	err = json.Unmarshal([]byte(storedData), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "ZC", parsed["symbol"])
	assert.Equal(t, 4.52, parsed["price"])

	expectedExpires := time.Now().Add(TTLQuote).Unix()
	assert.InDelta(t, expectedExpires, expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	err := repo.Store("quotes", "ZC", map[string]string{"version": "1"}, time.Hour)
	require.NoError(t, err)

	err = repo.Store("quotes", "ZC", map[string]string{"version": "2"}, time.Hour)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM quotes WHERE symbol = ?", "ZC").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh("quotes", "ZC")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed map[string]string
	err = json.Unmarshal(result, &parsed)
	require.NoError(t, err)
	assert.Equal(t, "2", parsed["version"])
}

func TestGetIfFresh_Fresh(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	err := repo.Store("price_history", "ZS", map[string]string{"status": "fresh"}, time.Hour)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("price_history", "ZS")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed map[string]string
	err = json.Unmarshal(result, &parsed)
	require.NoError(t, err)
	assert.Equal(t, "fresh", parsed["status"])
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO price_history (symbol, data, expires_at) VALUES (?, ?, ?)",
		"ZS", `{"status":"expired"}`, expiredAt,
	)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("price_history", "ZS")
	require.NoError(t, err)
	assert.Nil(t, result, "expired data must not be served as fresh")
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO quotes (symbol, data, expires_at) VALUES (?, ?, ?)",
		"KE", `{"status":"stale_but_useful"}`, expiredAt,
	)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("quotes", "KE")
	require.NoError(t, err)
	assert.Nil(t, result)

	// Stale data is the fallback when the upstream API is down.
	result, err = repo.Get("quotes", "KE")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed map[string]string
	err = json.Unmarshal(result, &parsed)
	require.NoError(t, err)
	assert.Equal(t, "stale_but_useful", parsed["status"])
}

func TestGet_NotFound(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	result, err := repo.Get("quotes", "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetIfFresh_NotFound(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	result, err := repo.GetIfFresh("quotes", "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDelete(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	err := repo.Store("narratives", "sig-123", map[string]string{"summary": "hold"}, TTLNarrative)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("narratives", "sig-123")
	require.NoError(t, err)
	require.NotNil(t, result)

	err = repo.Delete("narratives", "sig-123")
	require.NoError(t, err)

	result, err = repo.GetIfFresh("narratives", "sig-123")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDelete_NonExistent(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	err := repo.Delete("narratives", "NONEXISTENT")
	require.NoError(t, err)
}

func TestDeleteExpired(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	for _, row := range []struct {
		commodity string
		expiresAt int64
	}{
		{"CORN", expiredAt},
		{"SOYBEANS", expiredAt},
		{"WHEAT", expiredAt},
		{"OATS", freshAt},
		{"KC_WHEAT", freshAt},
	} {
		_, err := db.Exec(
			"INSERT INTO basis_history (commodity, data, expires_at) VALUES (?, ?, ?)",
			row.commodity, `{}`, row.expiresAt,
		)
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteExpired("basis_history")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM basis_history").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteExpired_EmptyTable(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	deleted, err := repo.DeleteExpired("basis_history")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO quotes (symbol, data, expires_at) VALUES (?, ?, ?)", "ZC", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO quotes (symbol, data, expires_at) VALUES (?, ?, ?)", "ZS", `{}`, freshAt)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO price_history (symbol, data, expires_at) VALUES (?, ?, ?)", "ZC", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO price_history (symbol, data, expires_at) VALUES (?, ?, ?)", "KE", `{}`, expiredAt)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO basis_history (commodity, data, expires_at) VALUES (?, ?, ?)", "CORN", `{}`, freshAt)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO narratives (signal_id, data, expires_at) VALUES (?, ?, ?)", "sig-1", `{}`, expiredAt)
	require.NoError(t, err)

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)

	assert.Equal(t, int64(1), results["quotes"])
	assert.Equal(t, int64(2), results["price_history"])
	assert.Equal(t, int64(0), results["basis_history"])
	assert.Equal(t, int64(1), results["narratives"])

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quotes").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM price_history").Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM basis_history").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM narratives").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStoreWithDifferentTables(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	tables := []struct {
		table string
		key   string
	}{
		{"quotes", "ZC"},
		{"price_history", "ZC"},
		{"basis_history", "CORN"},
		{"narratives", "sig-abc"},
	}

	for _, tc := range tables {
		t.Run(tc.table, func(t *testing.T) {
			data := map[string]string{"table": tc.table}
			err := repo.Store(tc.table, tc.key, data, time.Hour)
			require.NoError(t, err)

			result, err := repo.GetIfFresh(tc.table, tc.key)
			require.NoError(t, err)
			require.NotNil(t, result)

			var parsed map[string]string
			require.NoError(t, json.Unmarshal(result, &parsed))
			assert.Equal(t, tc.table, parsed["table"])
		})
	}
}

func TestGetKeyColumn(t *testing.T) {
	tests := []struct {
		table    string
		expected string
	}{
		{"quotes", "symbol"},
		{"price_history", "symbol"},
		{"basis_history", "commodity"},
		{"narratives", "signal_id"},
	}

	for _, tc := range tests {
		t.Run(tc.table, func(t *testing.T) {
			assert.Equal(t, tc.expected, getKeyColumn(tc.table))
		})
	}
}

func TestInvalidTableName(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db)

	t.Run("Store", func(t *testing.T) {
		err := repo.Store("invalid_table; DROP TABLE quotes;--", "key", map[string]string{}, time.Hour)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("GetIfFresh", func(t *testing.T) {
		_, err := repo.GetIfFresh("users", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Get", func(t *testing.T) {
		_, err := repo.Get("passwords", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Delete", func(t *testing.T) {
		err := repo.Delete("secrets", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		_, err := repo.DeleteExpired("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})
}

func TestValidateTable(t *testing.T) {
	for _, table := range AllTables {
		t.Run(table, func(t *testing.T) {
			assert.NoError(t, validateTable(table))
		})
	}
}
