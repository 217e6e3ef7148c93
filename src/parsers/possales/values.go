package possales

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errEmpty = errors.New("value is empty")

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05-07",
	time.RFC1123Z,
}

// naiveLayouts are interpreted in the configured default location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// parseTimestamp accepts the layouts above and returns the instant in UTC.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// normalizeDecimalString strips quotes, spaces and currency symbols and settles
// the decimal separator: "1,234.50" -> "1234.50", "12,5" -> "12.5".
func normalizeDecimalString(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"'")
	cleaned = strings.NewReplacer("$", "", "€", "", "£", "", " ", "").Replace(cleaned)

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return cleaned
}

func parseDecimal(s string) (decimal.Decimal, error) {
	cleaned := normalizeDecimalString(s)
	if cleaned == "" {
		return decimal.Zero, errEmpty
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	return d, nil
}

// parseQuantity accepts integers, and decimals with no fractional part ("3.0").
func parseQuantity(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errEmpty
	}
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	// IntPart wraps silently past int64.
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return d.IntPart(), nil
}
