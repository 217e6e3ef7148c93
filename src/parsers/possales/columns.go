package possales

import "strings"

// Canonical field names a CSV header can be mapped onto.
const (
	FieldTimestamp      = "timestamp"
	FieldProductID      = "product_id"
	FieldQuantity       = "quantity"
	FieldUnitPrice      = "unit_price"
	FieldUnitCost       = "unit_cost"
	FieldTransactionKey = "transaction_key"
	FieldDescription    = "description"
	FieldCategory       = "category"
	FieldCountry        = "country"
	FieldCustomerID     = "customer_id"
)

// RequiredFields must all be present in the header or the file is rejected.
var RequiredFields = []string{FieldTimestamp, FieldProductID, FieldQuantity, FieldUnitPrice}

// defaultAliases covers the exports we have seen from tills and the public
// online-retail dataset. Order matters: the first header present wins.
var defaultAliases = map[string][]string{
	FieldTimestamp:      {"timestamp", "invoicedate", "invoice_date", "transaction_date", "sold_at", "datetime", "date"},
	FieldProductID:      {"product_id", "stockcode", "stock_code", "sku", "product_code", "item_id"},
	FieldQuantity:       {"quantity", "qty", "units"},
	FieldUnitPrice:      {"unit_price", "unitprice", "price", "sale_price"},
	FieldUnitCost:       {"unit_cost", "unitcost", "cost", "cost_price"},
	FieldTransactionKey: {"transaction_key", "transaction_id", "invoice", "invoiceno", "invoice_no", "receipt_id", "order_id"},
	FieldDescription:    {"description", "product_name", "item_description"},
	FieldCategory:       {"category", "product_category"},
	FieldCountry:        {"country"},
	FieldCustomerID:     {"customer_id", "customerid", "customer"},
}

// NormalizeHeader lower-cases a header and turns spaces and dashes into underscores,
// so "Customer ID" becomes "customer_id".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Join(strings.Fields(h), "_")
	return strings.ReplaceAll(h, "-", "_")
}

// resolveColumns maps canonical fields to column indexes. Configured aliases are
// tried before the built-in ones.
func resolveColumns(header []string, extra map[string][]string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	index := make(map[string]int, len(defaultAliases))
	for field, aliases := range defaultAliases {
		candidates := append(append([]string{}, extra[field]...), aliases...)
		for _, alias := range candidates {
			if i, ok := pos[NormalizeHeader(alias)]; ok {
				index[field] = i
				break
			}
		}
	}
	return index
}
