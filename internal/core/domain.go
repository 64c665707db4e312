package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// MaxDescriptionLen caps description length on both create and edit.
const MaxDescriptionLen = 200

type (
	// TxType classifies a transaction as money in or money out.
	TxType string

	// Money is an amount in minor currency units. All arithmetic stays on
	// int64 cents; conversion to a display value happens only at the edge.
	Money struct {
		Cents int64
	}

	// Draft is a parsed-but-not-yet-persisted transaction. A draft is either
	// fully populated or it does not exist; the parser never returns a
	// partial one.
	Draft struct {
		Type        TxType
		Amount      Money
		Category    string
		Description string
	}

	// Transaction is a persisted draft. ID is assigned exactly once at
	// creation; edits may touch amount, category and description but never
	// the type or the owning user.
	Transaction struct {
		ID          string
		UserID      int64
		Username    string
		Type        TxType
		Amount      Money
		Category    string
		Description string
		CreatedAt   time.Time
		UpdatedAt   *time.Time
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyID         = errors.New("empty transaction id")
	ErrMissingUser     = errors.New("missing user id")
	ErrZeroCreatedAt   = errors.New("created_at cannot be zero")
	ErrNotFound        = errors.New("transaction not found")
	ErrWrongOwner      = errors.New("transaction belongs to another user")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
)

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Draft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if len(d.Description) > MaxDescriptionLen {
		return ErrDescriptionSize
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.UserID == 0 {
		return ErrMissingUser
	}
	if t.CreatedAt.IsZero() {
		return ErrZeroCreatedAt
	}
	return t.Draft().Validate()
}

// Draft returns the editable portion of the transaction.
func (t Transaction) Draft() Draft {
	return Draft{
		Type:        t.Type,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
	}
}

// Day returns the transaction's UTC calendar day.
func (t Transaction) Day() time.Time {
	u := t.CreatedAt.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
