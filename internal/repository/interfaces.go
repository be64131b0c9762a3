package repository

import (
	"context"
	"time"

	"phonemarket-bot/internal/model"
)

// RepoError is a sentinel error returned by repositories.
type RepoError string

func (e RepoError) Error() string { return string(e) }

const (
	// ErrNotFound indicates the user or row does not exist.
	ErrNotFound RepoError = "not found"
	// ErrInsufficientBalance indicates a debit larger than the balance.
	ErrInsufficientBalance RepoError = "insufficient balance"
)

// MarketStore holds the per-user black market state: offers, balance,
// inventory and monthly purchase counters.
type MarketStore interface {
	// GetOffers returns the user's current batch ordered by slot number.
	GetOffers(ctx context.Context, userID int64) ([]model.Offer, error)

	// GetOffer returns one slot, or nil if it does not exist.
	GetOffer(ctx context.Context, userID int64, slot int) (*model.Offer, error)

	ClearOffers(ctx context.Context, userID int64) error
	AddOffer(ctx context.Context, offer model.Offer) error

	// ReplaceOffers clears the user's batch and writes offers in its place.
	ReplaceOffers(ctx context.Context, userID int64, offers []model.Offer) error

	// MarkPurchased flips is_purchased for an unpurchased slot. It returns false
	// if the slot is missing or already purchased.
	MarkPurchased(ctx context.Context, userID int64, slot int) (bool, error)

	// LockUser locks the user's row until the surrounding transaction ends, so
	// purchases of one user are checked and applied one at a time. It returns
	// ErrNotFound for unknown users.
	LockUser(ctx context.Context, userID int64) error

	GetBalance(ctx context.Context, userID int64) (int64, error)

	// DebitBalance subtracts amount and returns the new balance. It never lets
	// the balance go negative.
	DebitBalance(ctx context.Context, userID int64, amount int64) (int64, error)

	CreditBalance(ctx context.Context, userID int64, amount int64) (int64, error)

	// AddInventoryItem stores item and returns its id.
	AddInventoryItem(ctx context.Context, item model.InventoryItem) (int64, error)

	// UpdateInventoryItem rewrites the color, wear and defect flag of an item.
	UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error

	CountActivePhones(ctx context.Context, userID int64) (int, error)
	CountMonthlyBlackMarketPhonePurchases(ctx context.Context, userID int64, month string) (int, error)
	IncrementMonthlyBlackMarketPhonePurchases(ctx context.Context, userID int64, month string) error
}

// Repository is the game database.
type Repository interface {
	MarketStore

	// InTx runs fn against a store bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(store MarketStore) error) error

	// EnsureUser returns the user, creating it with startingBalance if absent.
	EnsureUser(ctx context.Context, userID int64, username string, startingBalance int64) (*model.User, bool, error)

	// GetUser returns ErrNotFound for unknown users.
	GetUser(ctx context.Context, userID int64) (*model.User, error)

	ListInventory(ctx context.Context, userID int64) ([]model.InventoryItem, error)

	// DeleteOffersBefore removes batches generated before cutoff.
	DeleteOffersBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error

	// GetStats returns statistics about the database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// PurchaseLogRepository is the append-only purchase audit log.
type PurchaseLogRepository interface {
	InsertPurchase(ctx context.Context, record *model.PurchaseRecord) error

	// ListPurchases returns records newest first, with the total count.
	ListPurchases(ctx context.Context, limit, offset int) ([]model.PurchaseRecord, int64, error)

	Close() error
}
