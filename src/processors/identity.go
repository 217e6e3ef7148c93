package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/username/salesetl/src/models"
)

// identitySeparator cannot appear in a cleaned CSV field.
const identitySeparator = "\x1f"

// TransactionID is the hex sha256 of the canonical form of
// (timestamp, product_id, quantity, unit_price[, business key]).
//
// Source file and row position are not part of it: the same sale in two
// exports resolves to the same id. The timestamp is taken in UTC and the
// price through decimal's canonical String, so "10.00" and "10" agree. A
// business key is prefixed so a keyed row never hashes like an unkeyed one.
func TransactionID(tx *models.Transaction) string {
	parts := []string{
		tx.Timestamp.UTC().Format(time.RFC3339Nano),
		strings.ToUpper(strings.TrimSpace(tx.ProductID)),
		strconv.FormatInt(tx.Quantity, 10),
		tx.UnitPrice.String(),
	}
	if key := strings.TrimSpace(tx.TransactionKey); key != "" {
		parts = append(parts, "k:"+key)
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, identitySeparator)))
	return hex.EncodeToString(hash[:])
}
