package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ErrNothingToExport is returned when no transaction passes the filters.
var ErrNothingToExport = errors.New("no transactions match the export criteria")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	StartTime    time.Time
	EndTime      time.Time
	SymbolFilter string         // ticker, case-insensitive
	KindFilter   portfolio.Kind // BUY or SELL
	OutputDir    string
}

// HistoryExporter writes a user's transaction history to disk.
type HistoryExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryExporter creates a new history exporter
func NewHistoryExporter(logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Export writes the transactions of user that pass the filters, oldest first,
// and returns the file path.
func (he *HistoryExporter) Export(user string, txs []portfolio.Transaction, options ExportOptions) (string, error) {
	filtered := filterTransactions(txs, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, he.generateFilename(user, options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = he.exportToJSON(user, filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	he.logger.Info("Transactions exported",
		zap.String("user", user),
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterTransactions(txs []portfolio.Transaction, options ExportOptions) []portfolio.Transaction {
	var filtered []portfolio.Transaction
	for _, tx := range txs {
		if !options.StartTime.IsZero() && tx.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && tx.Timestamp.After(options.EndTime) {
			continue
		}
		if options.SymbolFilter != "" && !strings.EqualFold(tx.Symbol, options.SymbolFilter) {
			continue
		}
		if options.KindFilter != "" && tx.Kind != options.KindFilter {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}

// generateFilename creates a filename based on export options
func (he *HistoryExporter) generateFilename(user string, options ExportOptions) string {
	timestamp := he.now().Format("20060102_150405")

	prefix := "transactions_all"
	if options.KindFilter != "" {
		prefix = "transactions_" + strings.ToLower(string(options.KindFilter))
	}
	if options.SymbolFilter != "" {
		prefix += "_" + strings.ToLower(options.SymbolFilter)
	}

	return fmt.Sprintf("%s_%s_%s.%s", prefix, sanitize(user), timestamp, options.Format)
}

// sanitize keeps user ids usable as file name parts.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// CSVHeaders returns the CSV column names.
func CSVHeaders() []string {
	return []string{"id", "timestamp", "type", "symbol", "amount", "price"}
}

func csvRow(tx portfolio.Transaction) []string {
	price := ""
	if tx.Price != nil {
		price = tx.Price.String()
	}
	return []string{
		tx.ID,
		tx.Timestamp.UTC().Format(time.RFC3339),
		string(tx.Kind),
		tx.Symbol,
		tx.Amount.String(),
		price,
	}
}

func exportToCSV(txs []portfolio.Transaction, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, tx := range txs {
		if err := writer.Write(csvRow(tx)); err != nil {
			return fmt.Errorf("failed to write transaction: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (he *HistoryExporter) exportToJSON(user string, txs []portfolio.Transaction, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime       time.Time               `json:"export_time"`
		User             string                  `json:"user"`
		TransactionCount int                     `json:"transaction_count"`
		Transactions     []portfolio.Transaction `json:"transactions"`
		Summary          ExportSummary           `json:"summary"`
	}{
		ExportTime:       he.now().UTC(),
		User:             user,
		TransactionCount: len(txs),
		Transactions:     txs,
		Summary:          CalculateSummary(txs),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported transactions
type ExportSummary struct {
	TotalTransactions int                        `json:"total_transactions"`
	BuyCount          int                        `json:"buy_count"`
	SellCount         int                        `json:"sell_count"`
	UniqueSymbols     int                        `json:"unique_symbols"`
	Bought            map[string]decimal.Decimal `json:"bought"`
	Sold              map[string]decimal.Decimal `json:"sold"`
	StartDate         time.Time                  `json:"start_date"`
	EndDate           time.Time                  `json:"end_date"`
}

// CalculateSummary totals txs per symbol. txs must be oldest first.
func CalculateSummary(txs []portfolio.Transaction) ExportSummary {
	summary := ExportSummary{
		TotalTransactions: len(txs),
		Bought:            make(map[string]decimal.Decimal),
		Sold:              make(map[string]decimal.Decimal),
	}
	if len(txs) == 0 {
		return summary
	}

	summary.StartDate = txs[0].Timestamp
	summary.EndDate = txs[len(txs)-1].Timestamp

	symbols := make(map[string]bool)
	for _, tx := range txs {
		symbols[tx.Symbol] = true
		switch tx.Kind {
		case portfolio.Buy:
			summary.BuyCount++
			summary.Bought[tx.Symbol] = summary.Bought[tx.Symbol].Add(tx.Amount)
		case portfolio.Sell:
			summary.SellCount++
			summary.Sold[tx.Symbol] = summary.Sold[tx.Symbol].Add(tx.Amount)
		}
	}
	summary.UniqueSymbols = len(symbols)
	return summary
}
