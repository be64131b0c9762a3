package session

import (
	"context"
	"testing"
	"time"

	"phonemarket-bot/internal/cache"
	"phonemarket-bot/internal/model"
)

func TestStoreRoundTrip(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	s := NewStore(c, time.Hour)
	ctx := context.Background()
	key := Key{UserID: 1, ChatID: 2}

	st, err := s.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status() != StatusIdle {
		t.Fatalf("expected idle, got %s", st.Status())
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pending := AwaitingConfirmation{
		Offer: model.Offer{
			UserID: 1, SlotNumber: 1, ItemKey: "nova_s10", ItemType: model.ItemPhone,
			CurrentPrice: 320, OriginalPrice: 500, IsStolen: true, Quantity: 1,
			Wear: model.IncreasedBreakChance{Factor: 1.5}, GeneratedAt: at,
		},
		RequestedAt: at,
		Expiry:      at.Add(time.Minute),
	}
	if err := s.Save(ctx, key, pending); err != nil {
		t.Fatal(err)
	}

	st, err = s.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := st.(AwaitingConfirmation)
	if !ok {
		t.Fatalf("expected pending dialog, got %T", st)
	}
	if !got.Offer.SameDeal(pending.Offer) || !got.Expiry.Equal(pending.Expiry) {
		t.Errorf("dialog changed in storage: %+v", got)
	}
	if w, ok := got.Offer.Wear.(model.IncreasedBreakChance); !ok || w.Factor != 1.5 {
		t.Errorf("wear lost: %#v", got.Offer.Wear)
	}

	other := Key{UserID: 1, ChatID: 3}
	if st, _ := s.Load(ctx, other); st.Status() != StatusIdle {
		t.Error("dialogs must be scoped per chat")
	}

	st, _ = s.Take(ctx, key)
	if st.Status() != StatusAwaiting {
		t.Errorf("Take should return the pending dialog")
	}
	if st, _ := s.Load(ctx, key); st.Status() != StatusIdle {
		t.Error("Take should leave the dialog idle")
	}
}

func TestSaveIdleClears(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	s := NewStore(c, time.Hour)
	ctx := context.Background()
	key := Key{UserID: 9, ChatID: 9}

	now := time.Now()
	s.Save(ctx, key, AwaitingConfirmation{RequestedAt: now, Expiry: now.Add(time.Minute)})
	if err := s.Save(ctx, key, Idle{}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, %d entries left", c.Len())
	}
}

func TestExpired(t *testing.T) {
	at := time.Now()
	a := AwaitingConfirmation{RequestedAt: at, Expiry: at.Add(time.Minute)}
	if a.Expired(at.Add(time.Minute)) {
		t.Error("reply exactly at expiry is still in time")
	}
	if !a.Expired(at.Add(time.Minute + time.Nanosecond)) {
		t.Error("reply after expiry must be expired")
	}
}
