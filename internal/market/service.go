package market

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/config"
	"phonemarket-bot/internal/model"
	"phonemarket-bot/internal/repository"
	"phonemarket-bot/internal/session"

	"github.com/rs/zerolog"
)

// Config holds the black market rules.
type Config struct {
	Generator              GeneratorConfig
	Cycle                  CyclePolicy
	ConfirmTimeout         time.Duration
	MaxPhones              int // 0 disables the cap
	MaxMonthlyPhones       int // 0 disables the cap
	ComponentDefectChance  float64
	UnreliableSellerChance float64
	StartingBalance        int64
}

// ConfigFrom converts validated environment settings.
func ConfigFrom(app config.AppConfig, bm config.BlackMarketConfig) (Config, error) {
	loc, err := bm.Location()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Generator: GeneratorConfig{
			TotalSlots:      bm.TotalSlots,
			Inflation:       bm.Inflation,
			Discount:        Range{Min: bm.DiscountMin, Max: bm.DiscountMax},
			StolenDiscount:  Range{Min: bm.StolenDiscountMin, Max: bm.StolenDiscountMax},
			ExclusiveChance: bm.ExclusiveChance,
		},
		Cycle:                  CyclePolicy{ResetHour: bm.ResetHour, Location: loc},
		ConfirmTimeout:         bm.ConfirmTimeout,
		MaxPhones:              bm.MaxPhones,
		MaxMonthlyPhones:       bm.MaxMonthlyPhones,
		ComponentDefectChance:  bm.ComponentDefectChance,
		UnreliableSellerChance: bm.UnreliableSellerChance,
		StartingBalance:        app.StartingBalance,
	}, nil
}

// Service runs the black market for all users.
type Service struct {
	cfg      Config
	catalog  *catalog.Catalog
	gen      *Generator
	repo     repository.Repository
	sessions *session.Store
	audit    repository.PurchaseLogRepository
	log      zerolog.Logger
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	auditWG sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSeed makes offer generation and purchase rolls reproducible.
func WithSeed(seed1, seed2 uint64) Option {
	return func(s *Service) {
		s.rng = rand.New(rand.NewPCG(seed1, seed2))
		s.gen = NewSeededGenerator(s.cfg.Generator, s.catalog, seed2, seed1)
	}
}

// WithAuditLog records completed purchases in l.
func WithAuditLog(l repository.PurchaseLogRepository) Option {
	return func(s *Service) { s.audit = l }
}

// NewService wires the market over its stores.
func NewService(cfg Config, cat *catalog.Catalog, repo repository.Repository, sessions *session.Store, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		catalog:  cat,
		gen:      NewGenerator(cfg.Generator, cat),
		repo:     repo,
		sessions: sessions,
		log:      logger.With().Str("component", "market").Logger(),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the item tables the market sells from.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Config returns the market rules.
func (s *Service) Config() Config { return s.cfg }

// Register creates the user with the starting balance if needed.
func (s *Service) Register(ctx context.Context, userID int64, username string) (*model.User, bool, error) {
	return s.repo.EnsureUser(ctx, userID, username, s.cfg.StartingBalance)
}

// User returns a registered user.
func (s *Service) User(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return u, nil
}

// Inventory lists the user's items.
func (s *Service) Inventory(ctx context.Context, userID int64) ([]model.InventoryItem, error) {
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListInventory(ctx, userID)
}

// Credit adds amount to the user's balance.
func (s *Service) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.repo.CreditBalance(ctx, userID, amount)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	s.log.Info().Int64("user_id", userID).Int64("amount", amount).Int64("balance", balance).Msg("balance credited")
	return balance, nil
}

// CurrentOffers returns the user's batch for the current cycle, generating a
// new one when the stored batch is missing or stale.
func (s *Service) CurrentOffers(ctx context.Context, userID int64) ([]model.Offer, error) {
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	offers, err := s.repo.GetOffers(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.batchFresh(offers, now) {
		return offers, nil
	}

	err = s.repo.InTx(ctx, func(store repository.MarketStore) error {
		current, err := store.GetOffers(ctx, userID)
		if err != nil {
			return err
		}
		// another request may have refreshed the batch meanwhile
		if s.batchFresh(current, now) {
			offers = current
			return nil
		}

		batch, err := s.gen.Generate(userID, now)
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("offer generation failed")
			return ErrNoOffers
		}
		if len(batch) == 0 {
			return ErrNoOffers
		}
		if err := store.ReplaceOffers(ctx, userID, batch); err != nil {
			return err
		}
		offers = batch
		s.log.Debug().Int64("user_id", userID).Int("slots", len(batch)).
			Time("generated_at", batch[0].GeneratedAt).Msg("offers refreshed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// VisibleOffers returns the current batch without purchased slots.
func (s *Service) VisibleOffers(ctx context.Context, userID int64) ([]model.Offer, error) {
	offers, err := s.CurrentOffers(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if !o.IsPurchased {
			visible = append(visible, o)
		}
	}
	return visible, nil
}

// NextRefresh returns when the current cycle ends.
func (s *Service) NextRefresh() time.Time {
	_, end := s.cfg.Cycle.Window(s.now())
	return end
}

// Wait blocks until pending audit writes finish.
func (s *Service) Wait() {
	s.auditWG.Wait()
}

func (s *Service) batchFresh(offers []model.Offer, now time.Time) bool {
	if len(offers) == 0 {
		return false
	}
	for _, o := range offers {
		if !s.cfg.Cycle.IsFresh(o.GeneratedAt, now) {
			return false
		}
	}
	return true
}

// checkPhoneCaps rejects phone purchases over the ownership or monthly caps.
func (s *Service) checkPhoneCaps(ctx context.Context, store repository.MarketStore, userID int64, offer model.Offer, now time.Time) error {
	if offer.ItemType != model.ItemPhone {
		return nil
	}
	if s.cfg.MaxPhones > 0 {
		owned, err := store.CountActivePhones(ctx, userID)
		if err != nil {
			return err
		}
		if owned >= s.cfg.MaxPhones {
			return ErrPhoneLimit
		}
	}
	if s.cfg.MaxMonthlyPhones > 0 {
		bought, err := store.CountMonthlyBlackMarketPhonePurchases(ctx, userID, s.cfg.Cycle.MonthKey(now))
		if err != nil {
			return err
		}
		if bought >= s.cfg.MaxMonthlyPhones {
			return ErrMonthlyLimit
		}
	}
	return nil
}

func (s *Service) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Service) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientFunds
	}
	return err
}

func slotRangeError(slot, total int) error {
	return fmt.Errorf("%w: %d is not within 1..%d", ErrInvalidSlot, slot, total)
}
