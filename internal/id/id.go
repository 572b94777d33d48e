package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const importPrefix = "import"

// FormatImportID returns a review-queue id like "import_1736899200000_0_12".
func FormatImportID(stamp time.Time, fileIndex, rowIndex int) string {
	return fmt.Sprintf("%s_%d_%d_%d", importPrefix, stamp.UnixMilli(), fileIndex, rowIndex)
}

// NewTransactionID returns a fresh ledger transaction id like "txn_<uuid>".
func NewTransactionID() string {
	return "txn_" + uuid.NewString()
}

// NewReconciliationReference returns a generated reference like
// "REC-20250131-9f3a1c".
func NewReconciliationReference(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("REC-%s-%s", now.Format("20060102"), suffix)
}
