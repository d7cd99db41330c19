package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/solsecurity/internal/config"
	"github.com/rawblock/solsecurity/internal/flipside"
	"github.com/rawblock/solsecurity/internal/metrics"
	"github.com/rawblock/solsecurity/pkg/models"
)

const baseTime = int64(1740830400)

func testWallet() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base58.Encode(key)
}

func lamports(n int64) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(n, 10))
}

func nativeRecord(sig string, ts int64, from, to string, amount int64) models.RawTransaction {
	return models.RawTransaction{
		Signature: sig,
		Timestamp: ts,
		Type:      "TRANSFER",
		NativeTransfers: []models.RawNativeTransfer{
			{FromUserAccount: from, ToUserAccount: to, Amount: lamports(amount)},
		},
	}
}

type fakeSource struct {
	mu         sync.Mutex
	records    []models.RawTransaction
	err        error
	fundingErr error
	funded     map[string]time.Time
	requested  []string
	closed     bool
}

func (f *fakeSource) RecentTransactions(_ context.Context, address string, _ int) ([]models.RawTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, address)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) FirstFunded(_ context.Context, address string, _ int) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, address)
	if f.fundingErr != nil {
		return time.Time{}, false, f.fundingErr
	}
	at, ok := f.funded[address]
	return at, ok, nil
}

func (f *fakeSource) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeDusters struct {
	list   []string
	origin flipside.Origin
}

func (f fakeDusters) Dusters(context.Context, *http.Client) ([]string, flipside.Origin) {
	return f.list, f.origin
}

func testConfig() *config.Config {
	return &config.Config{
		Helius: config.HeliusConfig{
			APIKey:      "test-key",
			BaseURL:     config.DefaultHeliusBaseURL,
			RateLimit:   5,
			TxLimit:     20,
			HTTPTimeout: 5 * time.Second,
			MaxRetries:  1,
		},
		Engine: config.EngineConfig{
			SimilarityStrategy: "prefix4",
			TieredMinTier:      3,
			FundingLookupLimit: 100,
		},
	}
}

func newTestService(t *testing.T, src *fakeSource, dusters DusterSource, opts ...Option) *Service {
	t.Helper()
	cfg := testConfig()
	opts = append(opts, WithSourceFactory(func() (TransactionSource, error) { return src, nil }))
	svc, err := NewService(cfg, dusters, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return svc
}

func poisoningRecords(wallet string) []models.RawTransaction {
	return []models.RawTransaction{
		nativeRecord("legit", baseTime, wallet, "WXYZ5678abcd", 10_000_000_000),
		nativeRecord("poison", baseTime+300, "WXYZ9999abcd", wallet, 5_000),
	}
}

func TestAnalyzeWalletPoisoning(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{records: poisoningRecords(wallet)}
	svc := newTestService(t, src, fakeDusters{}, WithMetrics(metrics.New(prometheus.NewRegistry())))

	result, err := svc.AnalyzeWalletPoisoning(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeMimicryAndDust, result.Outcome)
	assert.Equal(t, 2, result.TotalTransactionsAnalyzed)
	assert.Equal(t, 1, result.ConfirmedPoisoningAttempts)
	assert.Equal(t, 1, result.DustingAttempts)
	assert.Equal(t, []string{"WXYZ5678abcd"}, result.MimickedAddresses)
	require.Len(t, result.PoisonedAddresses, 1)
	assert.Equal(t, "WXYZ9999abcd", result.PoisonedAddresses[0].Address)
	assert.Equal(t, wallet, result.WalletAddress)
	assert.Equal(t, "prefix4", result.Strategy)
	assert.NotEmpty(t, result.RunID)
	assert.True(t, src.closed)
}

func TestAnalyzeWalletPoisoningNoTransactions(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(t, src, fakeDusters{})

	result, err := svc.AnalyzeWalletPoisoning(context.Background(), testWallet())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNoTransactions, result.Outcome)
	assert.Empty(t, result.PoisonedAddresses)
}

func TestAnalyzeWalletPoisoningTrimsAddress(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{}
	svc := newTestService(t, src, fakeDusters{})

	result, err := svc.AnalyzeWalletPoisoning(context.Background(), "  "+wallet+"\n")
	require.NoError(t, err)
	assert.Equal(t, wallet, result.WalletAddress)
	assert.Equal(t, []string{wallet}, src.requested)
}

func TestAnalyzeWalletRejectsInvalidAddress(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(t, src, fakeDusters{})

	for _, addr := range []string{"", "not-base58-0OIl", "ABCDwxyz1234"} {
		_, err := svc.AnalyzeWalletPoisoning(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, "address %q", addr)
	}
	assert.Empty(t, src.requested)
}

func TestAnalyzeWalletPropagatesFetchError(t *testing.T) {
	src := &fakeSource{err: &models.FetchError{Source: "helius", StatusCode: 500, Message: "upstream down"}}
	svc := newTestService(t, src, fakeDusters{}, WithMetrics(metrics.New(prometheus.NewRegistry())))

	_, err := svc.AnalyzeWalletPoisoning(context.Background(), testWallet())
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 500, fe.StatusCode)
	assert.True(t, src.closed)
}

func TestDefaultSourceRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Helius.APIKey = ""
	svc, err := NewService(cfg, fakeDusters{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = svc.ScoreWalletTransactions(context.Background(), testWallet())
	var ce *models.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "HELIUS_API_KEY", ce.Key)
}

func TestNewServiceRejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.SimilarityStrategy = "fuzzy"
	_, err := NewService(cfg, fakeDusters{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestAnalyzeWalletDusting(t *testing.T) {
	wallet := testWallet()
	records := append(poisoningRecords(wallet),
		nativeRecord("gift", baseTime+600, "Friend111111", wallet, 2_000_000_000))
	src := &fakeSource{records: records}
	dusters := fakeDusters{list: []string{"WXYZ9999abcd"}, origin: flipside.OriginFallback}
	svc := newTestService(t, src, dusters)

	result, err := svc.AnalyzeWalletDusting(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeMimicryAndDust, result.Outcome)
	require.Len(t, result.KnownDusterHits, 2)
	assert.Equal(t, "poison", result.KnownDusterHits[0].Signature)
	assert.True(t, result.KnownDusterHits[0].IsDusting)
	assert.Equal(t, []string{"WXYZ9999abcd"}, result.KnownDusterHits[0].Senders)
	assert.Equal(t, "gift", result.KnownDusterHits[1].Signature)
	assert.False(t, result.KnownDusterHits[1].IsDusting)
}

func TestAnalyzeWalletDustingEmptyList(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{records: poisoningRecords(wallet)}
	svc := newTestService(t, src, fakeDusters{origin: flipside.OriginFallback})

	result, err := svc.AnalyzeWalletDusting(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, result.KnownDusterHits, 1)
	assert.False(t, result.KnownDusterHits[0].IsDusting)
}

func TestScoreWalletTransactions(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{records: poisoningRecords(wallet)}
	svc := newTestService(t, src, fakeDusters{})

	report, err := svc.ScoreWalletTransactions(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalTransactions)
	assert.Equal(t, 1, report.HighRiskCount)
	assert.Equal(t, 1, report.CleanCount)
	require.Len(t, report.Transactions, 2)
	assert.Equal(t, 100.0, report.Transactions[1].FinalScore)
	assert.Equal(t, "WXYZ5678abcd", report.Transactions[1].MimickedFrom)
	// tier 5 is conclusive, no funding lookup needed
	assert.Equal(t, []string{wallet}, src.requested)
}

func TestScoreWalletTransactionsFundingLookup(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{
		records: []models.RawTransaction{
			nativeRecord("legit", baseTime, wallet, "WXYZ5678abcd", 10_000_000_000),
			nativeRecord("poison", baseTime+60, "WX00000000qd", wallet, 100_000),
		},
		funded: map[string]time.Time{"WX00000000qd": time.Unix(baseTime-3600, 0)},
	}
	svc := newTestService(t, src, fakeDusters{})

	report, err := svc.ScoreWalletTransactions(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, report.Transactions, 2)
	assert.Equal(t, 2, report.Transactions[1].VisualTier)
	assert.InDelta(t, 64.94, report.Transactions[1].FinalScore, 0.001)
	assert.Equal(t, models.RiskMedium, report.Transactions[1].RiskLabel)
	assert.Contains(t, src.requested, "WX00000000qd")
}

func TestScoreWalletTransactionsDegradesOnFundingFailure(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{
		records: []models.RawTransaction{
			nativeRecord("legit", baseTime, wallet, "WXYZ5678abcd", 10_000_000_000),
			nativeRecord("poison", baseTime+60, "WX00000000qd", wallet, 100_000),
		},
		fundingErr: &models.FetchError{Source: "helius", StatusCode: 429, Message: "rate limited"},
	}
	svc := newTestService(t, src, fakeDusters{}, WithMetrics(metrics.New(prometheus.NewRegistry())))

	report, err := svc.ScoreWalletTransactions(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, report.Transactions, 2)
	assert.True(t, report.Transactions[1].Degraded)
	assert.Equal(t, models.RiskClean, report.Transactions[1].RiskLabel)
	assert.Equal(t, 2, report.CleanCount)
}

func TestShadowCompare(t *testing.T) {
	wallet := testWallet()
	src := &fakeSource{records: poisoningRecords(wallet)}
	svc := newTestService(t, src, fakeDusters{})

	report, err := svc.ShadowCompare(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "prefix4", report.ProductionStrategy)
	assert.Equal(t, "tiered", report.ShadowStrategy)
	assert.False(t, report.Diverged)
}

func TestSourceFactoryErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	svc, err := NewService(testConfig(), fakeDusters{}, zerolog.Nop(),
		WithSourceFactory(func() (TransactionSource, error) { return nil, boom }))
	require.NoError(t, err)

	_, err = svc.AnalyzeWalletDusting(context.Background(), testWallet())
	assert.ErrorIs(t, err, boom)
}
