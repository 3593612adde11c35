package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func generateTestTransactions() []portfolio.Transaction {
	price := decimal.NewFromInt(60000)
	// Most recent first, the way the ledger returns history.
	return []portfolio.Transaction{
		{ID: "4", UserID: "a@x.com", Symbol: "ETH", Kind: portfolio.Buy, Amount: decimal.NewFromInt(3), Timestamp: base.Add(3 * time.Hour)},
		{ID: "3", UserID: "a@x.com", Symbol: "BTC", Kind: portfolio.Sell, Amount: decimal.RequireFromString("0.5"), Timestamp: base.Add(2 * time.Hour)},
		{ID: "2", UserID: "a@x.com", Symbol: "BTC", Kind: portfolio.Buy, Amount: decimal.NewFromInt(1), Price: &price, Timestamp: base.Add(time.Hour)},
		{ID: "1", UserID: "a@x.com", Symbol: "DOGE", Kind: portfolio.Buy, Amount: decimal.NewFromInt(100), Timestamp: base},
	}
}

func newExporter() *HistoryExporter {
	e := NewHistoryExporter(zap.NewNop())
	e.now = func() time.Time { return base.Add(24 * time.Hour) }
	return e
}

func TestHistoryExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := newExporter().Export("a@x.com", generateTestTransactions(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transactions_all_a_x.com_20240302_120000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "1", rows[1][0], "oldest first")
	assert.Equal(t, []string{"2", "2024-03-01T13:00:00Z", "BUY", "BTC", "1", "60000"}, rows[2])
	assert.Equal(t, "", rows[3][5], "unpriced transactions leave the price empty")
}

func TestHistoryExportJSONWithFilters(t *testing.T) {
	dir := t.TempDir()
	path, err := newExporter().Export("a@x.com", generateTestTransactions(), ExportOptions{
		Format:       FormatJSON,
		SymbolFilter: "btc",
		OutputDir:    dir,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		User             string                  `json:"user"`
		TransactionCount int                     `json:"transaction_count"`
		Transactions     []portfolio.Transaction `json:"transactions"`
		Summary          ExportSummary           `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "a@x.com", out.User)
	assert.Equal(t, 2, out.TransactionCount)
	assert.Equal(t, 1, out.Summary.BuyCount)
	assert.Equal(t, 1, out.Summary.SellCount)
	assert.Equal(t, 1, out.Summary.UniqueSymbols)
	assert.True(t, out.Summary.Sold["BTC"].Equal(decimal.RequireFromString("0.5")))
}

func TestFilterTransactions(t *testing.T) {
	txs := generateTestTransactions()

	tests := []struct {
		name    string
		options ExportOptions
		want    int
	}{
		{"no filters", ExportOptions{}, 4},
		{"buys only", ExportOptions{KindFilter: portfolio.Buy}, 3},
		{"sells of btc", ExportOptions{KindFilter: portfolio.Sell, SymbolFilter: "BTC"}, 1},
		{"time window", ExportOptions{StartTime: base.Add(30 * time.Minute), EndTime: base.Add(2 * time.Hour)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, filterTransactions(txs, tt.options), tt.want)
		})
	}
}

func TestExportNothingMatches(t *testing.T) {
	_, err := newExporter().Export("a@x.com", generateTestTransactions(), ExportOptions{
		Format:       FormatCSV,
		SymbolFilter: "SOL",
		OutputDir:    t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
