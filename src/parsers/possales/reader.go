package possales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/salesetl/src/models"
	"github.com/username/salesetl/src/security/validation"
)

// Options tune how a file is read.
type Options struct {
	// Location applies to timestamps without an offset. Defaults to UTC.
	Location *time.Location
	// Aliases adds header names per canonical field, tried before the built-in ones.
	Aliases map[string][]string
}

// Stats are the per-file counters exposed for observability.
type Stats struct {
	RowsSeen     int
	RowsRejected int
}

// Reader yields cleaned candidate transactions from one POS CSV export, one row
// at a time and in file order. Reopening the file and building a new Reader
// restarts the sequence.
type Reader struct {
	csv    *csv.Reader
	file   string
	index  map[string]int
	loc    *time.Location
	header []string
	last   []string
	stats  Stats
}

// NewReader reads and maps the header. A missing header or a missing required
// column fails the whole file with a *models.FileError.
func NewReader(r io.Reader, sourceFile string, opts Options) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // POS exports drop trailing empty columns
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &models.FileError{File: sourceFile, Err: fmt.Errorf("%w: file is empty", models.ErrMissingHeader)}
		}
		return nil, &models.FileError{File: sourceFile, Err: fmt.Errorf("reading header: %w", err)}
	}

	index := resolveColumns(header, opts.Aliases)
	var missing []string
	for _, field := range RequiredFields {
		if _, ok := index[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &models.FileError{File: sourceFile, Err: fmt.Errorf("%w: %s", models.ErrMissingHeader, strings.Join(missing, ", "))}
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{csv: cr, file: sourceFile, index: index, loc: loc, header: header}, nil
}

// Next returns the next candidate. A *models.RowError means the row was
// rejected and reading may continue; io.EOF ends the file; any other error is
// a *models.FileError and the rest of the file must be abandoned.
func (r *Reader) Next() (*models.Transaction, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			r.last = nil
			r.stats.RowsSeen++
			r.stats.RowsRejected++
			return nil, &models.RowError{File: r.file, Line: pe.StartLine, Reason: pe.Err.Error()}
		}
		return nil, &models.FileError{File: r.file, Err: err}
	}
	r.stats.RowsSeen++
	r.last = record

	line, _ := r.csv.FieldPos(0)
	tx, rowErr := r.clean(record, line)
	if rowErr != nil {
		r.stats.RowsRejected++
		return nil, rowErr
	}
	return tx, nil
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats { return r.stats }

// Raw maps the last record read onto its normalized header names, for
// rejection logging.
func (r *Reader) Raw() models.RawRow {
	row := make(models.RawRow, len(r.header))
	for i, h := range r.header {
		if i < len(r.last) {
			row[NormalizeHeader(h)] = r.last[i]
		}
	}
	return row
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (r *Reader) reject(line int, field, reason string) *models.RowError {
	return &models.RowError{File: r.file, Line: line, Field: field, Reason: reason}
}

func (r *Reader) clean(record []string, line int) (*models.Transaction, *models.RowError) {
	productID := strings.ToUpper(validation.CollapseWhitespace(r.field(record, FieldProductID)))
	if err := validation.ValidateStringNotEmpty(productID, FieldProductID); err != nil {
		return nil, r.reject(line, FieldProductID, "missing")
	}
	if err := validation.ValidateStringMaxLength(productID, validation.MaxProductIDLength, FieldProductID); err != nil {
		return nil, r.reject(line, FieldProductID, err.Error())
	}

	ts, err := parseTimestamp(r.field(record, FieldTimestamp), r.loc)
	if err != nil {
		return nil, r.reject(line, FieldTimestamp, err.Error())
	}

	qty, err := parseQuantity(r.field(record, FieldQuantity))
	if err != nil {
		return nil, r.reject(line, FieldQuantity, err.Error())
	}
	if qty < 0 {
		return nil, r.reject(line, FieldQuantity, "negative quantity")
	}

	price, err := parseDecimal(r.field(record, FieldUnitPrice))
	if err != nil {
		return nil, r.reject(line, FieldUnitPrice, err.Error())
	}
	if price.IsNegative() {
		return nil, r.reject(line, FieldUnitPrice, "negative price")
	}

	var cost decimal.NullDecimal
	if raw := r.field(record, FieldUnitCost); strings.TrimSpace(raw) != "" {
		c, err := parseDecimal(raw)
		if err != nil {
			return nil, r.reject(line, FieldUnitCost, err.Error())
		}
		if c.IsNegative() {
			return nil, r.reject(line, FieldUnitCost, "negative cost")
		}
		cost = decimal.NewNullDecimal(c)
	}

	key := validation.CollapseWhitespace(r.field(record, FieldTransactionKey))
	if err := validation.ValidateStringMaxLength(key, validation.MaxTransactionKeyLength, FieldTransactionKey); err != nil {
		return nil, r.reject(line, FieldTransactionKey, err.Error())
	}

	return &models.Transaction{
		TransactionKey: key,
		Timestamp:      ts,
		ProductID:      productID,
		Quantity:       qty,
		UnitPrice:      price,
		UnitCost:       cost,
		Description:    validation.TruncateRunes(validation.CleanFreeText(r.field(record, FieldDescription)), validation.MaxDescriptionLength),
		Category:       validation.TruncateRunes(validation.CleanFreeText(r.field(record, FieldCategory)), validation.MaxCategoryLength),
		Country:        validation.TruncateRunes(validation.CollapseWhitespace(r.field(record, FieldCountry)), validation.MaxCountryLength),
		CustomerID:     validation.TruncateRunes(validation.CollapseWhitespace(r.field(record, FieldCustomerID)), validation.MaxCustomerIDLength),
		SourceFile:     r.file,
		SourceLine:     line,
	}, nil
}
