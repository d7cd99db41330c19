package helius

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/solsecurity/pkg/models"
)

const samplePayload = `[
	{"signature": "sig2", "timestamp": 1740830700, "nativeTransfers": [
		{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "amount": 5000}
	]},
	{"signature": "sig1", "timestamp": 1740830400, "nativeTransfers": [
		{"fromUserAccount": "ABCDwxyz1234", "toUserAccount": "WXYZ5678abcd", "amount": 10000000000000}
	], "tokenTransfers": []}
]`

func newTestClient(t *testing.T, srv *httptest.Server, retries int) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://x"}, zerolog.Nop())
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "HELIUS_API_KEY", cfgErr.Key)
}

func TestRecentTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/addresses/ABCDwxyz1234/transactions", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		assert.Equal(t, "TRANSFER", r.URL.Query().Get("type"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 1).RecentTransactions(context.Background(), "ABCDwxyz1234", 20)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sig2", records[0].Signature)
	assert.Equal(t, "WXYZ9999abcd", records[0].NativeTransfers[0].FromUserAccount)
	assert.Equal(t, "5000", string(records[0].NativeTransfers[0].Amount))
}

func TestRecentTransactionsNonSuccessIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).RecentTransactions(context.Background(), "ABCDwxyz1234", 20)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	assert.Contains(t, fe.Error(), "invalid api key")
}

func TestRecentTransactionsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "not a list"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 1).RecentTransactions(context.Background(), "ABCDwxyz1234", 20)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "malformed")
}

func TestRecentTransactionsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 2).RecentTransactions(context.Background(), "ABCDwxyz1234", 20)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFirstFunded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "FreshWallet"):
			_, _ = w.Write([]byte(samplePayload))
		case strings.Contains(r.URL.Path, "UndatedFirst"):
			_, _ = w.Write([]byte(`[{"signature":"a","timestamp":0},{"signature":"b","timestamp":1740830400}]`))
		case strings.Contains(r.URL.Path, "Undated"):
			_, _ = w.Write([]byte(`[{"signature":"a","timestamp":0}]`))
		case strings.Contains(r.URL.Path, "BusyWallet"):
			_, _ = w.Write([]byte(`[{"signature":"a","timestamp":3},{"signature":"b","timestamp":2}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv, 1)

	first, known, err := c.FirstFunded(context.Background(), "FreshWallet", 100)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, int64(1740830400), first.Unix())

	_, known, err = c.FirstFunded(context.Background(), "BusyWallet", 2)
	require.NoError(t, err)
	assert.False(t, known, "a full page means the account is older than the window")

	_, known, err = c.FirstFunded(context.Background(), "EmptyWallet", 100)
	require.NoError(t, err)
	assert.False(t, known)

	first, known, err = c.FirstFunded(context.Background(), "UndatedFirst", 100)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, int64(1740830400), first.Unix(), "zero timestamps are ignored")

	_, known, err = c.FirstFunded(context.Background(), "UndatedWallet", 100)
	require.NoError(t, err)
	assert.False(t, known)
}
