package market

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/model"
)

// GeneratorConfig holds the knobs of offer generation.
type GeneratorConfig struct {
	TotalSlots      int
	Inflation       float64
	Discount        Range
	StolenDiscount  Range
	ExclusiveChance float64
}

// Generator builds personalized offer batches from the catalog.
type Generator struct {
	cfg     GeneratorConfig
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator with a randomly seeded source.
func NewGenerator(cfg GeneratorConfig, cat *catalog.Catalog) *Generator {
	return NewSeededGenerator(cfg, cat, rand.Uint64(), rand.Uint64())
}

// NewSeededGenerator creates a generator with a fixed seed.
func NewSeededGenerator(cfg GeneratorConfig, cat *catalog.Catalog, seed1, seed2 uint64) *Generator {
	if cfg.Inflation <= 0 {
		cfg.Inflation = 1
	}
	return &Generator{
		cfg:     cfg,
		catalog: cat,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Generate produces up to TotalSlots offers for userID, numbered 1..n with the
// stolen offer (if any) in slot 1. A panic anywhere in generation yields a nil
// batch and an error, never a partial one.
func (g *Generator) Generate(userID int64, now time.Time) (offers []model.Offer, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			offers = nil
			err = fmt.Errorf("offer generation panicked: %v", r)
		}
	}()

	total := g.cfg.TotalSlots
	if total <= 0 {
		return nil, nil
	}
	generatedAt := now.UTC().Truncate(time.Microsecond)

	var stolen *model.Offer
	if len(g.catalog.Phones) > 0 {
		o := g.stolenOffer(userID, generatedAt)
		stolen = &o
	}

	pool := g.catalog.Candidates()
	if stolen != nil {
		filtered := pool[:0]
		for _, c := range pool {
			if c.Key != stolen.ItemKey {
				filtered = append(filtered, c)
			}
		}
		pool = filtered
	}

	regularCount := total
	if stolen != nil {
		regularCount--
	}
	if regularCount > len(pool) {
		regularCount = len(pool)
	}

	regular := make([]model.Offer, 0, regularCount)
	for _, idx := range g.rng.Perm(len(pool))[:regularCount] {
		regular = append(regular, g.regularOffer(userID, pool[idx], generatedAt))
	}

	if g.cfg.ExclusiveChance > 0 && g.rng.Float64() < g.cfg.ExclusiveChance {
		taken := make(map[string]bool, len(regular)+1)
		if stolen != nil {
			taken[stolen.ItemKey] = true
		}
		for _, o := range regular {
			taken[o.ItemKey] = true
		}
		g.substituteExclusive(regular, taken, userID, generatedAt)
	}

	g.rng.Shuffle(len(regular), func(i, j int) { regular[i], regular[j] = regular[j], regular[i] })

	offers = make([]model.Offer, 0, total)
	if stolen != nil {
		offers = append(offers, *stolen)
	}
	offers = append(offers, regular...)
	if len(offers) > total {
		offers = offers[:total]
	}
	for i := range offers {
		offers[i].SlotNumber = i + 1
	}
	return offers, nil
}

func (g *Generator) stolenOffer(userID int64, at time.Time) model.Offer {
	phone := g.catalog.Phones[g.rng.IntN(len(g.catalog.Phones))]
	d1 := g.draw(g.cfg.Discount)
	d2 := g.draw(g.cfg.StolenDiscount)

	return model.Offer{
		UserID:        userID,
		ItemKey:       phone.Key,
		ItemType:      model.ItemPhone,
		CurrentPrice:  ApplyDiscounts(phone.Price, g.cfg.Inflation, d1, d2),
		OriginalPrice: OriginalPrice(phone.Price, g.cfg.Inflation),
		IsStolen:      true,
		Quantity:      1,
		Wear:          g.wearEffect(),
		GeneratedAt:   at,
	}
}

func (g *Generator) regularOffer(userID int64, c catalog.Candidate, at time.Time) model.Offer {
	qty := 1
	if c.Type == model.ItemComponent {
		qty = 1 + g.rng.IntN(3)
	}
	return model.Offer{
		UserID:        userID,
		ItemKey:       c.Key,
		ItemType:      c.Type,
		CurrentPrice:  ApplyDiscounts(c.Price, g.cfg.Inflation, g.draw(g.cfg.Discount)),
		OriginalPrice: OriginalPrice(c.Price, g.cfg.Inflation),
		Quantity:      qty,
		GeneratedAt:   at,
	}
}

// substituteExclusive replaces one regular slot with a custom or vintage
// exclusive whose key is not already in the batch.
func (g *Generator) substituteExclusive(regular []model.Offer, taken map[string]bool, userID int64, at time.Time) {
	var targets []int
	for i, o := range regular {
		if !o.IsStolen && !o.IsExclusive {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return
	}

	var customs []catalog.Exclusive
	for _, e := range g.catalog.Exclusives {
		if !taken[e.Key] {
			customs = append(customs, e)
		}
	}
	var vintage []catalog.Phone
	for _, p := range g.catalog.VintagePhones() {
		if !taken[p.Key] {
			vintage = append(vintage, p)
		}
	}
	useCustom := len(customs) > 0
	switch {
	case len(customs) == 0 && len(vintage) == 0:
		return
	case len(customs) > 0 && len(vintage) > 0:
		useCustom = g.rng.IntN(2) == 0
	}

	slot := targets[g.rng.IntN(len(targets))]
	discount := g.draw(g.cfg.Discount)

	if useCustom {
		e := customs[g.rng.IntN(len(customs))]
		regular[slot] = model.Offer{
			UserID:        userID,
			ItemKey:       e.Key,
			ItemType:      model.ItemPhone,
			CurrentPrice:  ApplyDiscounts(e.Price, g.cfg.Inflation, discount),
			OriginalPrice: OriginalPrice(e.Price, g.cfg.Inflation),
			IsExclusive:   true,
			Quantity:      1,
			Custom: &model.CustomData{
				Kind:        model.ExclusiveCustom,
				Name:        e.Name,
				FixedColor:  e.Color,
				BonusText:   e.BonusText,
				Description: e.Description,
			},
			GeneratedAt: at,
		}
		return
	}

	p := vintage[g.rng.IntN(len(vintage))]
	regular[slot] = model.Offer{
		UserID:        userID,
		ItemKey:       p.Key,
		ItemType:      model.ItemPhone,
		CurrentPrice:  ApplyDiscounts(p.Price, g.cfg.Inflation, discount),
		OriginalPrice: OriginalPrice(p.Price, g.cfg.Inflation),
		IsExclusive:   true,
		Quantity:      1,
		Wear:          model.CosmeticDefect{Text: g.catalog.VintageWearNote},
		Custom: &model.CustomData{
			Kind: model.ExclusiveVintage,
			Name: "Vintage " + p.Name,
		},
		GeneratedAt: at,
	}
}

func (g *Generator) wearEffect() model.WearEffect {
	effects := g.catalog.StolenEffects
	if len(effects) == 0 {
		return nil
	}
	spec := effects[g.rng.IntN(len(effects))]
	switch spec.Kind {
	case model.WearReducedBattery:
		return model.ReducedBattery{Factor: g.between(spec.MinFactor, spec.MaxFactor)}
	case model.WearIncreasedBreakChance:
		return model.IncreasedBreakChance{Factor: g.between(spec.MinFactor, spec.MaxFactor)}
	case model.WearCosmeticDefect:
		if len(spec.Texts) == 0 {
			return nil
		}
		return model.CosmeticDefect{Text: spec.Texts[g.rng.IntN(len(spec.Texts))]}
	}
	return nil
}

func (g *Generator) draw(r Range) float64 {
	return g.between(r.Min, r.Max)
}

func (g *Generator) between(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}
