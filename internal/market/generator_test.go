package market

import (
	"testing"
	"time"

	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/model"
)

func defaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		TotalSlots:      6,
		Inflation:       1,
		Discount:        Range{Min: 0.05, Max: 0.30},
		StolenDiscount:  Range{Min: 0.20, Max: 0.45},
		ExclusiveChance: 0.15,
	}
}

func TestGenerateBatchShape(t *testing.T) {
	cat := catalog.Default()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for seed := uint64(0); seed < 200; seed++ {
		g := NewSeededGenerator(defaultGeneratorConfig(), cat, seed, seed*7+1)
		offers, err := g.Generate(42, now)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(offers) != 6 {
			t.Fatalf("seed %d: expected 6 offers, got %d", seed, len(offers))
		}

		stolen := 0
		for i, o := range offers {
			if o.SlotNumber != i+1 {
				t.Fatalf("seed %d: slot %d at position %d", seed, o.SlotNumber, i)
			}
			if o.UserID != 42 || !o.GeneratedAt.Equal(now) {
				t.Errorf("seed %d: offer not stamped for this batch: %+v", seed, o)
			}
			if o.CurrentPrice > o.OriginalPrice {
				t.Errorf("seed %d slot %d: price %d above original %d", seed, o.SlotNumber, o.CurrentPrice, o.OriginalPrice)
			}
			if o.OriginalPrice >= 1 && o.CurrentPrice < 1 {
				t.Errorf("seed %d slot %d: price below 1", seed, o.SlotNumber)
			}
			if o.Quantity < 1 || (o.ItemType != model.ItemComponent && o.Quantity != 1) {
				t.Errorf("seed %d slot %d: bad quantity %d", seed, o.SlotNumber, o.Quantity)
			}
			if o.IsStolen {
				stolen++
				if o.SlotNumber != 1 || o.IsExclusive || o.ItemType != model.ItemPhone || o.Wear == nil {
					t.Errorf("seed %d: malformed stolen offer %+v", seed, o)
				}
			}
		}
		if stolen != 1 {
			t.Errorf("seed %d: expected exactly one stolen offer, got %d", seed, stolen)
		}
		for _, o := range offers[1:] {
			if !o.IsExclusive && o.ItemKey == offers[0].ItemKey {
				t.Errorf("seed %d: stolen item %s offered twice", seed, o.ItemKey)
			}
		}
	}
}

func TestGenerateExclusiveSubstitution(t *testing.T) {
	cfg := defaultGeneratorConfig()
	cfg.ExclusiveChance = 1
	cat := catalog.Default()

	sawCustom, sawVintage := false, false
	for seed := uint64(0); seed < 100; seed++ {
		offers, err := NewSeededGenerator(cfg, cat, seed, 99).Generate(1, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		exclusives := 0
		for _, o := range offers {
			if !o.IsExclusive {
				continue
			}
			exclusives++
			if o.Custom == nil {
				t.Fatalf("exclusive without custom data: %+v", o)
			}
			switch o.Custom.Kind {
			case model.ExclusiveCustom:
				sawCustom = true
				if o.Custom.FixedColor == "" {
					t.Errorf("custom exclusive without fixed color: %+v", o.Custom)
				}
			case model.ExclusiveVintage:
				sawVintage = true
				if _, ok := o.Wear.(model.CosmeticDefect); !ok {
					t.Errorf("vintage exclusive without wear note: %#v", o.Wear)
				}
			}
		}
		if exclusives != 1 {
			t.Errorf("seed %d: expected one exclusive, got %d", seed, exclusives)
		}
	}
	if !sawCustom || !sawVintage {
		t.Errorf("expected both exclusive kinds over 100 batches, custom=%v vintage=%v", sawCustom, sawVintage)
	}
}

func TestGenerateSmallPools(t *testing.T) {
	cfg := defaultGeneratorConfig()
	cfg.TotalSlots = 10

	cat := &catalog.Catalog{
		Phones: []catalog.Phone{{Key: "p1", Name: "P1", Price: 100}},
		Cases:  []catalog.Case{{Key: "c1", Name: "C1", Price: 20}},
	}
	offers, err := NewSeededGenerator(cfg, cat, 1, 2).Generate(1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	// stolen p1 plus the only remaining candidate
	if len(offers) != 2 || offers[0].ItemKey != "p1" || offers[1].ItemKey != "c1" {
		t.Errorf("unexpected batch: %+v", offers)
	}
	if offers[0].Wear != nil {
		t.Errorf("no effect table means no wear, got %#v", offers[0].Wear)
	}

	offers, err = NewSeededGenerator(cfg, &catalog.Catalog{}, 1, 2).Generate(1, time.Now())
	if err != nil || len(offers) != 0 {
		t.Errorf("empty catalog should give an empty batch, got %v %v", offers, err)
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	cat := catalog.Default()
	now := time.Now()
	a, _ := NewSeededGenerator(defaultGeneratorConfig(), cat, 5, 6).Generate(1, now)
	b, _ := NewSeededGenerator(defaultGeneratorConfig(), cat, 5, 6).Generate(1, now)
	for i := range a {
		if !a[i].SameDeal(b[i]) {
			t.Fatalf("slot %d differs: %+v vs %+v", i+1, a[i], b[i])
		}
	}
}

func TestExclusiveNeverDuplicatesBatchItem(t *testing.T) {
	cat := &catalog.Catalog{
		Phones: []catalog.Phone{
			{Key: "a", Name: "Phone A", Price: 300},
			{Key: "b", Name: "Phone B", Price: 500},
			{Key: "c", Name: "Phone C", Price: 700},
		},
		VintageKeys: []string{"a", "b", "c"},
	}
	cfg := GeneratorConfig{TotalSlots: 2, Inflation: 1, ExclusiveChance: 1}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	exclusives := 0
	for seed := uint64(0); seed < 200; seed++ {
		offers, err := NewSeededGenerator(cfg, cat, seed, seed+1).Generate(1, now)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		seen := map[string]bool{}
		for _, o := range offers {
			if seen[o.ItemKey] {
				t.Fatalf("seed %d: %s appears twice in %+v", seed, o.ItemKey, offers)
			}
			seen[o.ItemKey] = true
			if o.IsExclusive {
				exclusives++
			}
		}
	}
	if exclusives != 200 {
		t.Errorf("expected the free vintage phone in every batch, got %d exclusives", exclusives)
	}
}

func TestExclusiveSkippedWhenPoolExhausted(t *testing.T) {
	cat := &catalog.Catalog{
		Phones: []catalog.Phone{
			{Key: "a", Name: "Phone A", Price: 300},
			{Key: "b", Name: "Phone B", Price: 500},
		},
		VintageKeys: []string{"a", "b"},
	}
	cfg := GeneratorConfig{TotalSlots: 2, Inflation: 1, ExclusiveChance: 1}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for seed := uint64(0); seed < 200; seed++ {
		offers, err := NewSeededGenerator(cfg, cat, seed, seed+1).Generate(1, now)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(offers) != 2 || offers[0].ItemKey == offers[1].ItemKey {
			t.Fatalf("seed %d: expected two distinct phones, got %+v", seed, offers)
		}
		for _, o := range offers {
			if o.IsExclusive {
				t.Fatalf("seed %d: unexpected exclusive %+v", seed, o)
			}
		}
	}
}

func TestGenerateFailureYieldsNoBatch(t *testing.T) {
	g := NewSeededGenerator(defaultGeneratorConfig(), nil, 1, 2)

	offers, err := g.Generate(1, time.Now())
	if err == nil {
		t.Fatal("expected an error from a generator without a catalog")
	}
	if offers != nil {
		t.Errorf("expected no offers, got %+v", offers)
	}
}
