package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"phonemarket-bot/internal/model"

	"github.com/rs/zerolog/log"
)

// Dialect selects SQL syntax differences between the supported databases.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) incrementMonthlyQuery() string {
	if d == DialectMySQL {
		return `
		INSERT INTO bm_monthly_purchases (user_id, month, phone_count)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE phone_count = phone_count + 1`
	}
	return `
		INSERT INTO bm_monthly_purchases (user_id, month, phone_count)
		VALUES (?, ?, 1)
		ON CONFLICT (user_id, month) DO UPDATE SET
			phone_count = bm_monthly_purchases.phone_count + 1`
}

// lockUserQuery reads the user row with a row lock. SQLite has a single
// connection, so its transactions are already serialized.
func (d Dialect) lockUserQuery() string {
	q := `SELECT user_id FROM users WHERE user_id = ?`
	if d == DialectSQLite {
		return q
	}
	return q + ` FOR UPDATE`
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlStore implements MarketStore over a connection or a transaction.
type sqlStore struct {
	q queryer
	d Dialect
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.d.rebind(query), args...)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.d.rebind(query), args...)
}

const offerColumns = `user_id, slot_number, item_key, item_type, current_price, original_price,
	is_stolen, is_exclusive, quantity, wear_data, custom_data, generated_at, is_purchased`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (model.Offer, error) {
	var (
		o            model.Offer
		itemType     string
		wear, custom sql.NullString
	)
	err := row.Scan(&o.UserID, &o.SlotNumber, &o.ItemKey, &itemType, &o.CurrentPrice, &o.OriginalPrice,
		&o.IsStolen, &o.IsExclusive, &o.Quantity, &wear, &custom, &o.GeneratedAt, &o.IsPurchased)
	if err != nil {
		return o, err
	}
	o.ItemType = model.ItemType(itemType)
	o.GeneratedAt = o.GeneratedAt.UTC()
	if o.Wear, err = model.UnmarshalWear([]byte(wear.String)); err != nil {
		return o, err
	}
	if o.Custom, err = decodeCustom(custom); err != nil {
		return o, err
	}
	return o, nil
}

// GetOffers returns the user's current batch ordered by slot number.
func (s *sqlStore) GetOffers(ctx context.Context, userID int64) ([]model.Offer, error) {
	rows, err := s.query(ctx, `SELECT `+offerColumns+` FROM bm_offers WHERE user_id = ? ORDER BY slot_number`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// GetOffer returns one slot, or nil if it does not exist.
func (s *sqlStore) GetOffer(ctx context.Context, userID int64, slot int) (*model.Offer, error) {
	row := s.queryRow(ctx, `SELECT `+offerColumns+` FROM bm_offers WHERE user_id = ? AND slot_number = ?`, userID, slot)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &o, nil
}

// ClearOffers deletes the user's whole batch.
func (s *sqlStore) ClearOffers(ctx context.Context, userID int64) error {
	if _, err := s.exec(ctx, `DELETE FROM bm_offers WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear offers: %w", err)
	}
	return nil
}

// AddOffer inserts one slot.
func (s *sqlStore) AddOffer(ctx context.Context, o model.Offer) error {
	wear, err := model.MarshalWear(o.Wear)
	if err != nil {
		return fmt.Errorf("failed to encode wear data: %w", err)
	}
	custom, err := encodeCustom(o.Custom)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, `
		INSERT INTO bm_offers (`+offerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.SlotNumber, o.ItemKey, string(o.ItemType), o.CurrentPrice, o.OriginalPrice,
		o.IsStolen, o.IsExclusive, o.Quantity, nullable(wear), custom, o.GeneratedAt.UTC(), o.IsPurchased)
	if err != nil {
		return fmt.Errorf("failed to add offer %d: %w", o.SlotNumber, err)
	}
	return nil
}

// ReplaceOffers clears the user's batch and writes offers in its place.
func (s *sqlStore) ReplaceOffers(ctx context.Context, userID int64, offers []model.Offer) error {
	if err := s.ClearOffers(ctx, userID); err != nil {
		return err
	}
	for _, o := range offers {
		o.UserID = userID
		if err := s.AddOffer(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// MarkPurchased flips is_purchased for an unpurchased slot.
func (s *sqlStore) MarkPurchased(ctx context.Context, userID int64, slot int) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE bm_offers SET is_purchased = ?
		WHERE user_id = ? AND slot_number = ? AND is_purchased = ?`,
		true, userID, slot, false)
	if err != nil {
		return false, fmt.Errorf("failed to mark offer purchased: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *sqlStore) LockUser(ctx context.Context, userID int64) error {
	var id int64
	err := s.queryRow(ctx, s.d.lockUserQuery(), userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// GetBalance returns ErrNotFound for unknown users.
func (s *sqlStore) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.queryRow(ctx, `SELECT balance FROM users WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// DebitBalance subtracts amount and returns the new balance.
func (s *sqlStore) DebitBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must not be negative, got %d", amount)
	}
	if amount == 0 {
		return s.GetBalance(ctx, userID)
	}
	res, err := s.exec(ctx, `UPDATE users SET balance = balance - ? WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if _, err := s.GetBalance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}
	return s.GetBalance(ctx, userID)
}

// CreditBalance adds amount and returns the new balance.
func (s *sqlStore) CreditBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must not be negative, got %d", amount)
	}
	if amount == 0 {
		return s.GetBalance(ctx, userID)
	}
	res, err := s.exec(ctx, `UPDATE users SET balance = balance + ? WHERE user_id = ?`, amount, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}
	return s.GetBalance(ctx, userID)
}

const inventoryColumns = `user_id, item_key, item_type, quantity, color, wear_data, custom_data,
	defective, source, is_active, acquired_at`

// AddInventoryItem stores item and returns its id.
func (s *sqlStore) AddInventoryItem(ctx context.Context, item model.InventoryItem) (int64, error) {
	wear, err := model.MarshalWear(item.Wear)
	if err != nil {
		return 0, fmt.Errorf("failed to encode wear data: %w", err)
	}
	custom, err := encodeCustom(item.Custom)
	if err != nil {
		return 0, err
	}
	if item.AcquiredAt.IsZero() {
		item.AcquiredAt = time.Now()
	}
	args := []any{item.UserID, item.ItemKey, string(item.ItemType), item.Quantity, item.Color,
		nullable(wear), custom, item.Defective, item.Source, item.IsActive, item.AcquiredAt.UTC()}
	insert := `INSERT INTO inventory_items (` + inventoryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// lib/pq does not implement LastInsertId
	if s.d == DialectPostgres {
		var id int64
		if err := s.queryRow(ctx, insert+` RETURNING id`, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to add inventory item: %w", err)
		}
		return id, nil
	}

	res, err := s.exec(ctx, insert, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to add inventory item: %w", err)
	}
	return res.LastInsertId()
}

// UpdateInventoryItem rewrites the color, wear and defect flag of an item.
func (s *sqlStore) UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	wear, err := model.MarshalWear(item.Wear)
	if err != nil {
		return fmt.Errorf("failed to encode wear data: %w", err)
	}
	res, err := s.exec(ctx, `UPDATE inventory_items SET color = ?, wear_data = ?, defective = ? WHERE id = ?`,
		item.Color, nullable(wear), item.Defective, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update inventory item %d: %w", item.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActivePhones counts phones that occupy an ownership slot.
func (s *sqlStore) CountActivePhones(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM inventory_items WHERE user_id = ? AND item_type = ? AND is_active = ?`,
		userID, string(model.ItemPhone), true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count phones: %w", err)
	}
	return n, nil
}

// CountMonthlyBlackMarketPhonePurchases returns the phone purchase counter for month.
func (s *sqlStore) CountMonthlyBlackMarketPhonePurchases(ctx context.Context, userID int64, month string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT phone_count FROM bm_monthly_purchases WHERE user_id = ? AND month = ?`,
		userID, month).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count monthly purchases: %w", err)
	}
	return n, nil
}

// IncrementMonthlyBlackMarketPhonePurchases bumps the counter for month.
func (s *sqlStore) IncrementMonthlyBlackMarketPhonePurchases(ctx context.Context, userID int64, month string) error {
	if _, err := s.exec(ctx, s.d.incrementMonthlyQuery(), userID, month); err != nil {
		return fmt.Errorf("failed to increment monthly purchases: %w", err)
	}
	return nil
}

// SQLRepository implements Repository on database/sql.
type SQLRepository struct {
	sqlStore
	db *sql.DB
}

func newSQLRepository(db *sql.DB, d Dialect) (*SQLRepository, error) {
	for _, stmt := range schema(d) {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return &SQLRepository{sqlStore: sqlStore{q: db, d: d}, db: db}, nil
}

// InTx runs fn against a store bound to a single transaction.
func (r *SQLRepository) InTx(ctx context.Context, fn func(store MarketStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlStore{q: tx, d: r.d}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureUser returns the user, creating it with startingBalance if absent.
func (r *SQLRepository) EnsureUser(ctx context.Context, userID int64, username string, startingBalance int64) (*model.User, bool, error) {
	u, err := r.GetUser(ctx, userID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = r.exec(ctx, `INSERT INTO users (user_id, username, balance, created_at) VALUES (?, ?, ?, ?)`,
		userID, username, startingBalance, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Str("component", "repository").Int64("user_id", userID).Msg("registered new user")
	return &model.User{ID: userID, Username: username, Balance: startingBalance, CreatedAt: now}, true, nil
}

// GetUser returns ErrNotFound for unknown users.
func (r *SQLRepository) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	err := r.queryRow(ctx, `SELECT user_id, username, balance, created_at FROM users WHERE user_id = ?`, userID).
		Scan(&u.ID, &u.Username, &u.Balance, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListInventory returns the user's items, oldest first.
func (r *SQLRepository) ListInventory(ctx context.Context, userID int64) ([]model.InventoryItem, error) {
	rows, err := r.query(ctx, `SELECT id, `+inventoryColumns+` FROM inventory_items WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var (
			it           model.InventoryItem
			itemType     string
			wear, custom sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.ItemKey, &itemType, &it.Quantity, &it.Color, &wear, &custom,
			&it.Defective, &it.Source, &it.IsActive, &it.AcquiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		it.ItemType = model.ItemType(itemType)
		if it.Wear, err = model.UnmarshalWear([]byte(wear.String)); err != nil {
			return nil, err
		}
		if it.Custom, err = decodeCustom(custom); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteOffersBefore removes batches generated before cutoff.
func (r *SQLRepository) DeleteOffersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM bm_offers WHERE generated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale offers: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().Str("component", "repository").Str("dialect", string(r.d)).
			Int64("deleted", deleted).Time("cutoff", cutoff).Msg("cleaned up stale offers")
	}
	return deleted, nil
}

// Ping verifies the connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetStats returns statistics about the database.
func (r *SQLRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["dialect"] = string(r.d)

	for key, table := range map[string]string{
		"users":           "users",
		"offers":          "bm_offers",
		"inventory_items": "inventory_items",
	} {
		var count int64
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[key] = count
	}

	var purchased int64
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM bm_offers WHERE is_purchased = ?`, true).Scan(&purchased); err == nil {
		stats["offers_purchased"] = purchased
	}

	dbStats := r.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func nullable(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func encodeCustom(c *model.CustomData) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode custom data: %w", err)
	}
	return nullable(b), nil
}

func decodeCustom(s sql.NullString) (*model.CustomData, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var c model.CustomData
	if err := json.Unmarshal([]byte(s.String), &c); err != nil {
		return nil, fmt.Errorf("failed to decode custom data: %w", err)
	}
	return &c, nil
}

// Ensure SQLRepository implements Repository
var _ Repository = (*SQLRepository)(nil)
