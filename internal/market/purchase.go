package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"phonemarket-bot/internal/model"
	"phonemarket-bot/internal/repository"
	"phonemarket-bot/internal/session"
)

// Outcome is the result of a reply to a pending confirmation.
type Outcome string

const (
	OutcomeNotPending   Outcome = "not_pending"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeExpired      Outcome = "expired"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomePurchased    Outcome = "purchased"
	OutcomeChanged      Outcome = "changed"
	OutcomeFailed       Outcome = "failed"
)

var (
	affirmative = map[string]bool{"yes": true, "y": true, "buy": true, "да": true}
	negative    = map[string]bool{"no": true, "n": true, "cancel": true, "нет": true}
)

// Quote is an offer held for confirmation.
type Quote struct {
	Offer   model.Offer
	Name    string
	Balance int64
	Expiry  time.Time
}

// Twist describes what the unreliable seller did to a delivered phone.
type Twist struct {
	Recolored bool
	OldColor  string
	NewColor  string
	Defect    string
}

func (t *Twist) String() string {
	if t == nil {
		return ""
	}
	if t.Recolored {
		return fmt.Sprintf("recolored %s -> %s", t.OldColor, t.NewColor)
	}
	return "defect: " + t.Defect
}

// Purchase is a completed deal.
type Purchase struct {
	Offer   model.Offer
	Item    model.InventoryItem
	Balance int64
	Twist   *Twist
}

// Reply is what happened to a pending confirmation.
type Reply struct {
	Outcome  Outcome
	Offer    model.Offer
	Purchase *Purchase
	// Err explains OutcomeChanged and OutcomeFailed.
	Err error
}

// RequestPurchase validates slot and, if the user can buy it, starts a
// confirmation dialog. On error the dialog is left idle.
func (s *Service) RequestPurchase(ctx context.Context, userID, chatID int64, slot int) (*Quote, error) {
	key := session.Key{UserID: userID, ChatID: chatID}
	quote, err := s.requestPurchase(ctx, key, slot)
	if err != nil {
		if cerr := s.sessions.Clear(ctx, key); cerr != nil {
			s.log.Warn().Err(cerr).Int64("user_id", userID).Msg("failed to reset dialog")
		}
		return nil, err
	}
	return quote, nil
}

func (s *Service) requestPurchase(ctx context.Context, key session.Key, slot int) (*Quote, error) {
	if slot < 1 || slot > s.cfg.Generator.TotalSlots {
		return nil, slotRangeError(slot, s.cfg.Generator.TotalSlots)
	}

	user, err := s.User(ctx, key.UserID)
	if err != nil {
		return nil, err
	}

	offers, err := s.CurrentOffers(ctx, key.UserID)
	if err != nil {
		return nil, err
	}
	var offer *model.Offer
	for i := range offers {
		if offers[i].SlotNumber == slot {
			offer = &offers[i]
			break
		}
	}
	if offer == nil {
		return nil, ErrSlotNotFound
	}
	if offer.IsPurchased {
		return nil, ErrAlreadyPurchased
	}

	now := s.now()
	if err := s.checkPhoneCaps(ctx, s.repo, key.UserID, *offer, now); err != nil {
		return nil, err
	}
	if user.Balance < offer.CurrentPrice {
		return nil, ErrInsufficientFunds
	}

	pending := session.AwaitingConfirmation{
		Offer:       *offer,
		RequestedAt: now,
		Expiry:      now.Add(s.cfg.ConfirmTimeout),
	}
	if err := s.sessions.Save(ctx, key, pending); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", key.UserID).Int("slot", slot).Str("item", offer.ItemKey).
		Int64("price", offer.CurrentPrice).Msg("purchase awaiting confirmation")
	return &Quote{
		Offer:   *offer,
		Name:    s.OfferName(*offer),
		Balance: user.Balance,
		Expiry:  pending.Expiry,
	}, nil
}

// HandleReply applies a free-text reply to the dialog of (userID, chatID).
// Every outcome except OutcomeUnrecognized leaves the dialog idle.
func (s *Service) HandleReply(ctx context.Context, userID, chatID int64, text string) (*Reply, error) {
	key := session.Key{UserID: userID, ChatID: chatID}
	st, err := s.sessions.Take(ctx, key)
	if err != nil {
		return nil, err
	}
	pending, ok := st.(session.AwaitingConfirmation)
	if !ok {
		return &Reply{Outcome: OutcomeNotPending}, nil
	}

	now := s.now()
	logger := s.log.With().Int64("user_id", userID).Int("slot", pending.Offer.SlotNumber).Logger()

	if pending.Expired(now) {
		logger.Info().Time("expiry", pending.Expiry).Msg("confirmation expired")
		return &Reply{Outcome: OutcomeExpired, Offer: pending.Offer}, nil
	}

	word := normalizeReply(text)
	switch {
	case negative[word]:
		logger.Info().Msg("purchase cancelled")
		return &Reply{Outcome: OutcomeCancelled, Offer: pending.Offer}, nil
	case !affirmative[word]:
		if err := s.sessions.Save(ctx, key, pending); err != nil {
			return nil, err
		}
		return &Reply{Outcome: OutcomeUnrecognized, Offer: pending.Offer}, nil
	}

	purchase, err := s.confirm(ctx, pending.Offer, now)
	if err != nil {
		if Kind(err) == KindStale {
			logger.Info().Msg("offer changed before confirmation")
			return &Reply{Outcome: OutcomeChanged, Offer: pending.Offer, Err: err}, nil
		}
		if Kind(err) == KindInternal {
			logger.Error().Err(err).Msg("purchase failed")
		} else {
			logger.Info().Err(err).Msg("purchase rejected")
		}
		return &Reply{Outcome: OutcomeFailed, Offer: pending.Offer, Err: err}, nil
	}

	logger.Info().Str("item", purchase.Item.ItemKey).Int64("price", purchase.Offer.CurrentPrice).
		Int64("balance", purchase.Balance).Msg("purchase completed")
	return &Reply{Outcome: OutcomePurchased, Offer: purchase.Offer, Purchase: purchase}, nil
}

// confirm re-validates the quoted offer against live data and performs the
// purchase in a single transaction.
func (s *Service) confirm(ctx context.Context, quoted model.Offer, now time.Time) (*Purchase, error) {
	userID := quoted.UserID
	var p Purchase

	err := s.repo.InTx(ctx, func(store repository.MarketStore) error {
		// serializes confirmations of this user across chats before the cap checks
		if err := store.LockUser(ctx, userID); err != nil {
			return mapRepoErr(err)
		}
		live, err := store.GetOffer(ctx, userID, quoted.SlotNumber)
		if err != nil {
			return err
		}
		if live == nil || live.IsPurchased || !live.SameDeal(quoted) || !s.cfg.Cycle.IsFresh(live.GeneratedAt, now) {
			return ErrOfferChanged
		}
		if err := s.checkPhoneCaps(ctx, store, userID, *live, now); err != nil {
			return err
		}

		marked, err := store.MarkPurchased(ctx, userID, live.SlotNumber)
		if err != nil {
			return err
		}
		if !marked {
			return ErrOfferChanged
		}

		balance, err := store.DebitBalance(ctx, userID, live.CurrentPrice)
		if err != nil {
			return mapRepoErr(err)
		}

		item := s.deliver(*live, now)
		if item.ID, err = store.AddInventoryItem(ctx, item); err != nil {
			return err
		}
		if live.ItemType == model.ItemPhone {
			if err := store.IncrementMonthlyBlackMarketPhonePurchases(ctx, userID, s.cfg.Cycle.MonthKey(now)); err != nil {
				return err
			}
		}

		live.IsPurchased = true
		p = Purchase{Offer: *live, Item: item, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.Twist = s.sellerTwist(ctx, &p.Item)
	s.recordPurchase(ctx, p)
	return &p, nil
}

// deliver builds the inventory item for a purchased offer.
func (s *Service) deliver(o model.Offer, now time.Time) model.InventoryItem {
	item := model.InventoryItem{
		UserID:     o.UserID,
		ItemKey:    o.ItemKey,
		ItemType:   o.ItemType,
		Quantity:   o.Quantity,
		Wear:       o.Wear,
		Custom:     o.Custom,
		Source:     model.SourceBlackMarket,
		IsActive:   true,
		AcquiredAt: now.UTC().Truncate(time.Microsecond),
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	switch o.ItemType {
	case model.ItemPhone:
		if o.Custom != nil && o.Custom.FixedColor != "" {
			item.Color = o.Custom.FixedColor
		} else if colors := s.catalog.Colors(o.ItemKey); len(colors) > 0 {
			item.Color = colors[s.intN(len(colors))]
		}
	case model.ItemComponent:
		item.Defective = s.chance(s.cfg.ComponentDefectChance)
	}
	return item
}

// sellerTwist may recolor a delivered phone or scuff it. The purchase stands
// whatever happens here.
func (s *Service) sellerTwist(ctx context.Context, item *model.InventoryItem) *Twist {
	if item.ItemType != model.ItemPhone || !s.chance(s.cfg.UnreliableSellerChance) {
		return nil
	}

	var alternatives []string
	if item.Custom == nil || item.Custom.FixedColor == "" {
		for _, c := range s.catalog.Colors(item.ItemKey) {
			if c != item.Color {
				alternatives = append(alternatives, c)
			}
		}
	}
	defects := s.cosmeticDefects()
	canScuff := item.Wear == nil && len(defects) > 0

	updated := *item
	var twist Twist
	switch {
	case len(alternatives) > 0 && (!canScuff || s.intN(2) == 0):
		twist = Twist{Recolored: true, OldColor: item.Color, NewColor: alternatives[s.intN(len(alternatives))]}
		updated.Color = twist.NewColor
	case canScuff:
		twist = Twist{Defect: defects[s.intN(len(defects))]}
		updated.Wear = model.CosmeticDefect{Text: twist.Defect}
	default:
		return nil
	}

	if err := s.repo.UpdateInventoryItem(ctx, updated); err != nil {
		s.log.Warn().Err(err).Int64("item_id", item.ID).Msg("failed to apply seller twist")
		return nil
	}
	*item = updated
	s.log.Info().Int64("user_id", item.UserID).Int64("item_id", item.ID).Str("twist", twist.String()).
		Msg("unreliable seller struck")
	return &twist
}

func (s *Service) cosmeticDefects() []string {
	for _, e := range s.catalog.StolenEffects {
		if e.Kind == model.WearCosmeticDefect {
			return e.Texts
		}
	}
	return nil
}

// recordPurchase appends the purchase to the audit log in the background.
func (s *Service) recordPurchase(ctx context.Context, p Purchase) {
	if s.audit == nil {
		return
	}
	record := &model.PurchaseRecord{
		UserID:       p.Offer.UserID,
		SlotNumber:   p.Offer.SlotNumber,
		ItemKey:      p.Offer.ItemKey,
		ItemType:     p.Offer.ItemType,
		Price:        p.Offer.CurrentPrice,
		BalanceAfter: p.Balance,
		IsStolen:     p.Offer.IsStolen,
		IsExclusive:  p.Offer.IsExclusive,
		SellerTwist:  p.Twist.String(),
		PurchasedAt:  p.Item.AcquiredAt,
	}

	s.auditWG.Add(1)
	go func() {
		defer s.auditWG.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.audit.InsertPurchase(ctx, record); err != nil {
			s.log.Warn().Err(err).Int64("user_id", record.UserID).Msg("failed to write purchase audit record")
		}
	}()
}

// OfferName returns the display name of an offer.
func (s *Service) OfferName(o model.Offer) string {
	if o.Custom != nil && o.Custom.Name != "" {
		return o.Custom.Name
	}
	return s.catalog.ItemName(o.ItemType, o.ItemKey)
}

func normalizeReply(text string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!?"))
}

// IsReplyWord reports whether text would be read as a yes or no answer.
func IsReplyWord(text string) bool {
	w := normalizeReply(text)
	return affirmative[w] || negative[w]
}
