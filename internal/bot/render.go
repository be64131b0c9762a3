package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/market"
	"phonemarket-bot/internal/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const helpText = `📱 Phone Market

/start - register and get your starting money
/balance - show your balance
/inventory - list your phones and parts
/bm - today's black market offers
/bm_buy <slot> - buy an offer (you will be asked to confirm)

Reply "yes" or "no" when the market asks you to confirm a deal.`

type renderer struct {
	p   *message.Printer
	cat *catalog.Catalog
	loc *time.Location
}

func newRenderer(cat *catalog.Catalog, loc *time.Location) *renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &renderer{p: message.NewPrinter(language.English), cat: cat, loc: loc}
}

func (r *renderer) money(v int64) string {
	return r.p.Sprintf("%d 💵", v)
}

func (r *renderer) offerName(o model.Offer) string {
	if o.Custom != nil && o.Custom.Name != "" {
		return o.Custom.Name
	}
	return r.cat.ItemName(o.ItemType, o.ItemKey)
}

func (r *renderer) offers(offers []model.Offer, nextRefresh time.Time) string {
	var b strings.Builder
	b.WriteString("🕶 Black market\n")
	if len(offers) == 0 {
		b.WriteString("\nYou bought everything. Come back after the restock.\n")
	}
	for _, o := range offers {
		b.WriteString("\n")
		switch {
		case o.IsStolen:
			b.WriteString("🔥 ")
		case o.IsExclusive:
			b.WriteString("⭐ ")
		}
		fmt.Fprintf(&b, "%d. %s", o.SlotNumber, r.offerName(o))
		if o.Quantity > 1 {
			fmt.Fprintf(&b, " x%d", o.Quantity)
		}
		fmt.Fprintf(&b, " - %s", r.money(o.CurrentPrice))
		if o.OriginalPrice > o.CurrentPrice {
			fmt.Fprintf(&b, " (was %s)", r.money(o.OriginalPrice))
		}
		if o.IsStolen {
			b.WriteString("\n   stolen goods, no questions asked")
		}
		if o.Wear != nil {
			fmt.Fprintf(&b, "\n   wear: %s", o.Wear.Describe())
		}
		if o.Custom != nil && o.Custom.BonusText != "" {
			fmt.Fprintf(&b, "\n   %s", o.Custom.BonusText)
		}
	}
	fmt.Fprintf(&b, "\n\nRestock at %s. Buy with /bm_buy <slot>.", nextRefresh.In(r.loc).Format("02.01 15:04 MST"))
	return b.String()
}

func (r *renderer) quote(q *market.Quote, timeout time.Duration) string {
	return r.p.Sprintf("🤝 %s for %s.\nYour balance: %s.\nReply \"yes\" to buy or \"no\" to walk away. The seller waits %d seconds.",
		q.Name, r.money(q.Offer.CurrentPrice), r.money(q.Balance), int(timeout/time.Second))
}

func (r *renderer) reply(rep *market.Reply) string {
	name := r.offerName(rep.Offer)
	switch rep.Outcome {
	case market.OutcomePurchased:
		p := rep.Purchase
		var b strings.Builder
		fmt.Fprintf(&b, "✅ %s is yours for %s. Balance: %s.", name, r.money(p.Offer.CurrentPrice), r.money(p.Balance))
		if p.Item.Color != "" {
			fmt.Fprintf(&b, "\nColor: %s.", p.Item.Color)
		}
		if p.Item.Defective {
			b.WriteString("\nThe part turned out to be defective.")
		}
		if t := p.Twist; t != nil {
			if t.Recolored {
				fmt.Fprintf(&b, "\n😬 The seller swapped it: you got a %s one instead of %s.", t.NewColor, t.OldColor)
			} else {
				fmt.Fprintf(&b, "\n😬 On a closer look: %s.", t.Defect)
			}
		}
		return b.String()
	case market.OutcomeCancelled:
		return "👋 Deal cancelled. The seller shrugs."
	case market.OutcomeExpired:
		return "⌛ Too late, the seller left. Ask again with /bm_buy."
	case market.OutcomeUnrecognized:
		return fmt.Sprintf("🤔 Buy %s? Reply \"yes\" or \"no\".", name)
	case market.OutcomeChanged:
		return "⚠️ " + capitalize(market.ErrOfferChanged.Error()) + ". Check /bm again."
	case market.OutcomeFailed:
		if market.Kind(rep.Err) == market.KindInternal {
			return "⚠️ The deal fell through. Nothing was charged."
		}
		return "❌ The deal fell through: " + userMessage(rep.Err) + "."
	}
	return ""
}

func (r *renderer) inventory(items []model.InventoryItem) string {
	if len(items) == 0 {
		return "🎒 Your inventory is empty. Visit /bm."
	}
	var b strings.Builder
	b.WriteString("🎒 Inventory\n")
	for _, it := range items {
		name := r.cat.ItemName(it.ItemType, it.ItemKey)
		if it.Custom != nil && it.Custom.Name != "" {
			name = it.Custom.Name
		}
		fmt.Fprintf(&b, "\n• %s", name)
		if it.Quantity > 1 {
			fmt.Fprintf(&b, " x%d", it.Quantity)
		}
		if it.Color != "" {
			fmt.Fprintf(&b, " (%s)", it.Color)
		}
		if it.Wear != nil {
			fmt.Fprintf(&b, ", %s", it.Wear.Describe())
		}
		if it.Defective {
			b.WriteString(", defective")
		}
	}
	return b.String()
}

// userMessage returns the text a player should see for a market error.
func userMessage(err error) string {
	var e market.Error
	if errors.As(err, &e) {
		return err.Error()
	}
	return "something went wrong"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
