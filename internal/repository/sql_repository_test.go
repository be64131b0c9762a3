package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"phonemarket-bot/internal/model"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testOffers(userID int64, at time.Time) []model.Offer {
	return []model.Offer{
		{
			UserID: userID, SlotNumber: 1, ItemKey: "nova_s10", ItemType: model.ItemPhone,
			CurrentPrice: 320, OriginalPrice: 600, IsStolen: true, Quantity: 1,
			Wear: model.ReducedBattery{Factor: 0.7}, GeneratedAt: at,
		},
		{
			UserID: userID, SlotNumber: 2, ItemKey: "excl_brick_diamond", ItemType: model.ItemPhone,
			CurrentPrice: 900, OriginalPrice: 1000, IsExclusive: true, Quantity: 1,
			Custom:      &model.CustomData{Kind: model.ExclusiveCustom, Name: "Brick Diamond", FixedColor: "Diamond Studded"},
			GeneratedAt: at,
		},
		{
			UserID: userID, SlotNumber: 3, ItemKey: "battery_pack", ItemType: model.ItemComponent,
			CurrentPrice: 40, OriginalPrice: 50, Quantity: 3, GeneratedAt: at,
		},
	}
}

func TestSQLiteOffersRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC)

	if err := repo.ReplaceOffers(ctx, 7, testOffers(7, at)); err != nil {
		t.Fatalf("ReplaceOffers: %v", err)
	}

	offers, err := repo.GetOffers(ctx, 7)
	if err != nil {
		t.Fatalf("GetOffers: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}
	if !offers[0].GeneratedAt.Equal(at) {
		t.Errorf("generated_at changed: %v", offers[0].GeneratedAt)
	}
	wear, ok := offers[0].Wear.(model.ReducedBattery)
	if !ok || wear.Factor != 0.7 {
		t.Errorf("unexpected wear: %#v", offers[0].Wear)
	}
	if offers[1].Custom == nil || offers[1].Custom.FixedColor != "Diamond Studded" {
		t.Errorf("unexpected custom data: %#v", offers[1].Custom)
	}
	if offers[2].Wear != nil || offers[2].Custom != nil || offers[2].Quantity != 3 {
		t.Errorf("unexpected component offer: %#v", offers[2])
	}

	missing, err := repo.GetOffer(ctx, 7, 9)
	if err != nil || missing != nil {
		t.Errorf("expected nil offer for missing slot, got %v, %v", missing, err)
	}

	// replacing drops the old batch entirely
	if err := repo.ReplaceOffers(ctx, 7, testOffers(7, at)[:1]); err != nil {
		t.Fatalf("ReplaceOffers: %v", err)
	}
	offers, _ = repo.GetOffers(ctx, 7)
	if len(offers) != 1 {
		t.Errorf("expected 1 offer after replace, got %d", len(offers))
	}
}

func TestSQLiteMarkPurchasedOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.ReplaceOffers(ctx, 1, testOffers(1, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.MarkPurchased(ctx, 1, 2)
	if err != nil || !ok {
		t.Fatalf("first mark: %v %v", ok, err)
	}
	ok, err = repo.MarkPurchased(ctx, 1, 2)
	if err != nil || ok {
		t.Errorf("second mark should report false, got %v %v", ok, err)
	}
	ok, _ = repo.MarkPurchased(ctx, 1, 42)
	if ok {
		t.Error("missing slot should report false")
	}
}

func TestSQLiteBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, created, err := repo.EnsureUser(ctx, 5, "alice", 500)
	if err != nil || !created || u.Balance != 500 {
		t.Fatalf("EnsureUser: %+v %v %v", u, created, err)
	}
	if _, created, _ = repo.EnsureUser(ctx, 5, "alice", 9999); created {
		t.Error("second EnsureUser must not create")
	}

	bal, err := repo.DebitBalance(ctx, 5, 320)
	if err != nil || bal != 180 {
		t.Fatalf("debit: %d %v", bal, err)
	}
	if _, err := repo.DebitBalance(ctx, 5, 181); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if bal, _ := repo.GetBalance(ctx, 5); bal != 180 {
		t.Errorf("failed debit changed balance to %d", bal)
	}
	if bal, err := repo.CreditBalance(ctx, 5, 20); err != nil || bal != 200 {
		t.Errorf("credit: %d %v", bal, err)
	}
	if _, err := repo.DebitBalance(ctx, 99, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestSQLiteInventoryAndCounters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddInventoryItem(ctx, model.InventoryItem{
		UserID: 3, ItemKey: "nova_s10", ItemType: model.ItemPhone, Quantity: 1,
		Source: model.SourceBlackMarket, IsActive: true,
	})
	if err != nil || id == 0 {
		t.Fatalf("AddInventoryItem: %d %v", id, err)
	}
	if _, err := repo.AddInventoryItem(ctx, model.InventoryItem{
		UserID: 3, ItemKey: "battery_pack", ItemType: model.ItemComponent, Quantity: 2, IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}

	err = repo.UpdateInventoryItem(ctx, model.InventoryItem{
		ID: id, Color: "Black", Wear: model.CosmeticDefect{Text: "scratched"}, Defective: true,
	})
	if err != nil {
		t.Fatalf("UpdateInventoryItem: %v", err)
	}

	items, err := repo.ListInventory(ctx, 3)
	if err != nil || len(items) != 2 {
		t.Fatalf("ListInventory: %d %v", len(items), err)
	}
	if items[0].Color != "Black" || !items[0].Defective || items[0].Wear == nil {
		t.Errorf("update not applied: %+v", items[0])
	}

	phones, _ := repo.CountActivePhones(ctx, 3)
	if phones != 1 {
		t.Errorf("expected 1 phone, got %d", phones)
	}

	for i := 0; i < 2; i++ {
		if err := repo.IncrementMonthlyBlackMarketPhonePurchases(ctx, 3, "2024-05"); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := repo.CountMonthlyBlackMarketPhonePurchases(ctx, 3, "2024-05"); n != 2 {
		t.Errorf("expected 2 monthly purchases, got %d", n)
	}
	if n, _ := repo.CountMonthlyBlackMarketPhonePurchases(ctx, 3, "2024-06"); n != 0 {
		t.Errorf("expected fresh month to be 0, got %d", n)
	}
}

func TestSQLiteInTxRollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if _, _, err := repo.EnsureUser(ctx, 1, "bob", 100); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(s MarketStore) error {
		if _, err := s.DebitBalance(ctx, 1, 60); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if bal, _ := repo.GetBalance(ctx, 1); bal != 100 {
		t.Errorf("rollback failed, balance %d", bal)
	}

	err = repo.InTx(ctx, func(s MarketStore) error {
		_, err := s.DebitBalance(ctx, 1, 60)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if bal, _ := repo.GetBalance(ctx, 1); bal != 40 {
		t.Errorf("commit failed, balance %d", bal)
	}
}

func TestSQLiteDeleteOffersBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	repo.ReplaceOffers(ctx, 1, testOffers(1, now.Add(-10*24*time.Hour)))
	repo.ReplaceOffers(ctx, 2, testOffers(2, now.Add(-time.Hour)))

	deleted, err := repo.DeleteOffersBefore(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}
	if offers, _ := repo.GetOffers(ctx, 2); len(offers) != 3 {
		t.Errorf("recent batch should survive, got %d", len(offers))
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	if got := DialectPostgres.rebind(q); got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Errorf("unexpected rebind: %s", got)
	}
	if got := DialectMySQL.rebind(q); got != q {
		t.Errorf("mysql query should not change: %s", got)
	}
}

func TestLockUserQuery(t *testing.T) {
	if q := DialectSQLite.lockUserQuery(); strings.Contains(q, "FOR UPDATE") {
		t.Errorf("sqlite does not support row locks: %s", q)
	}
	for _, d := range []Dialect{DialectPostgres, DialectMySQL} {
		if q := d.lockUserQuery(); !strings.HasSuffix(q, "FOR UPDATE") {
			t.Errorf("%s: expected a row lock, got %s", d, q)
		}
	}
}

func TestLockUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if _, _, err := repo.EnsureUser(ctx, 7, "player", 100); err != nil {
		t.Fatal(err)
	}

	err := repo.InTx(ctx, func(s MarketStore) error {
		if err := s.LockUser(ctx, 7); err != nil {
			return err
		}
		_, err := s.DebitBalance(ctx, 7, 40)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = repo.InTx(ctx, func(s MarketStore) error { return s.LockUser(ctx, 8) })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestMemoryPurchaseLog(t *testing.T) {
	l := NewMemoryPurchaseLog(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := l.InsertPurchase(ctx, &model.PurchaseRecord{UserID: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	records, total, err := l.ListPurchases(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(records) != 3 || records[0].UserID != 5 || records[2].UserID != 3 {
		t.Errorf("unexpected ring contents: %+v", records)
	}
	if records[0].ID == "" || records[0].PurchasedAt.IsZero() {
		t.Error("id and timestamp should be assigned")
	}

	page, _, _ := l.ListPurchases(ctx, 1, 1)
	if len(page) != 1 || page[0].UserID != 4 {
		t.Errorf("unexpected page: %+v", page)
	}
}
