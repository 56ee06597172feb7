package ingest

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"donki-dashboard/internal/errors"
	"donki-dashboard/internal/models"
)

// RequiredColumns must all be present in the header row, spelled
// exactly like this. Matching is case-sensitive.
var RequiredColumns = []string{
	"TransactionID",
	"CustomerID",
	"ProductID",
	"ProductCategory",
	"PurchaseCount",
	"Price",
	"TotalAmount",
}

var numericColumns = map[string]bool{
	"PurchaseCount": true,
	"Price":         true,
	"TotalAmount":   true,
}

type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse turns raw CSV text into the ordered transaction sequence.
//
// The first non-empty line is the header; a header missing any required
// column aborts with a validation error naming the missing columns.
// Data rows whose field count disagrees with the header are skipped
// (logged, not raised). Numeric fields that fail to parse default to 0.
// Fields are split naively on "," with no quoting support.
func (p *Parser) Parse(rawText string) ([]models.Transaction, error) {
	lines := strings.Split(rawText, "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, errors.Validation("CSV file is empty")
	}

	headers := splitFields(lines[headerIdx])

	var missing []string
	for _, col := range RequiredColumns {
		if !contains(headers, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Validation(
			fmt.Sprintf("CSV is missing required columns: %s", strings.Join(missing, ", ")))
	}

	transactions := make([]models.Transaction, 0, len(lines)-headerIdx-1)

	for i := headerIdx + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}

		values := splitFields(lines[i])
		if len(values) != len(headers) {
			p.logger.Warn("skipping malformed row",
				"line", i+1,
				"fields", len(values),
				"expected", len(headers),
			)
			continue
		}

		var tx models.Transaction
		for j, header := range headers {
			p.assignField(&tx, header, values[j], i+1)
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

func (p *Parser) assignField(tx *models.Transaction, header, value string, line int) {
	if numericColumns[header] {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			// Malformed numbers degrade to zero rather than failing the
			// row. This silently skews aggregates, so at least log it.
			p.logger.Debug("numeric field not parseable, defaulting to 0",
				"line", line,
				"column", header,
				"value", value,
			)
			n = 0
		}
		switch header {
		case "PurchaseCount":
			tx.PurchaseCount = n
		case "Price":
			tx.Price = n
		case "TotalAmount":
			tx.TotalAmount = n
		}
		return
	}

	switch header {
	case "TransactionID":
		tx.TransactionID = value
	case "CustomerID":
		tx.CustomerID = value
	case "ProductID":
		tx.ProductID = value
	case "ProductCategory":
		tx.ProductCategory = value
	case "Timestamp":
		tx.Timestamp = value
	case "StoreID":
		tx.StoreID = value
	case "CustomerSegment":
		tx.CustomerSegment = value
	case "PaymentMethod":
		tx.PaymentMethod = value
	case "PromotionCode":
		tx.PromotionCode = value
	}
}

// splitFields is a naive comma split; embedded commas inside quoted
// fields are not supported, matching the documented input format.
func splitFields(line string) []string {
	parts := strings.Split(strings.TrimRight(line, "\r"), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
