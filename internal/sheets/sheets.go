// Package sheets mirrors transactions into a Google Spreadsheet so that
// users who prefer a spreadsheet view keep a live copy of their ledger.
package sheets

import (
	"context"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// Mirror is the write side of the spreadsheet copy. Append is idempotent on
// the transaction ID: re-appending an existing row replaces it in place.
type Mirror interface {
	Append(ctx context.Context, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
}
