// Package catalog holds the static item tables the black market draws from.
package catalog

import "phonemarket-bot/internal/model"

// Phone is a standard phone model.
type Phone struct {
	Key      string
	Name     string
	Series   string
	MemoryGB int
	Price    int64
	Colors   []string
}

// Component is a spare part sold in stacks.
type Component struct {
	Key   string
	Name  string
	Kind  string
	Price int64
}

// Case is a protective case; Protection is the fraction of break chance it absorbs.
type Case struct {
	Key        string
	Name       string
	Price      int64
	Protection float64
}

// Exclusive is a curated one-off phone with a fixed flavor bundle.
type Exclusive struct {
	Key         string
	Name        string
	Series      string
	MemoryGB    int
	Price       int64
	Color       string
	BonusText   string
	Description string
}

// EffectSpec is one row of the stolen-item wear table. Factor effects draw
// uniformly from [MinFactor, MaxFactor); cosmetic effects pick one of Texts.
type EffectSpec struct {
	Kind      model.WearKind
	MinFactor float64
	MaxFactor float64
	Texts     []string
}

// Candidate is a pool entry for offer generation.
type Candidate struct {
	Key   string
	Type  model.ItemType
	Name  string
	Price int64
}

// Catalog bundles all static tables.
type Catalog struct {
	Phones          []Phone
	Components      []Component
	Cases           []Case
	Exclusives      []Exclusive
	VintageKeys     []string
	VintageWearNote string
	StolenEffects   []EffectSpec
}

// Candidates returns the combined pool of standard phones, components and cases.
func (c *Catalog) Candidates() []Candidate {
	out := make([]Candidate, 0, len(c.Phones)+len(c.Components)+len(c.Cases))
	for _, p := range c.Phones {
		out = append(out, Candidate{Key: p.Key, Type: model.ItemPhone, Name: p.Name, Price: p.Price})
	}
	for _, p := range c.Components {
		out = append(out, Candidate{Key: p.Key, Type: model.ItemComponent, Name: p.Name, Price: p.Price})
	}
	for _, p := range c.Cases {
		out = append(out, Candidate{Key: p.Key, Type: model.ItemCase, Name: p.Name, Price: p.Price})
	}
	return out
}

// Phone looks up a standard phone by key.
func (c *Catalog) Phone(key string) (Phone, bool) {
	for _, p := range c.Phones {
		if p.Key == key {
			return p, true
		}
	}
	return Phone{}, false
}

// Exclusive looks up a custom exclusive by key.
func (c *Catalog) Exclusive(key string) (Exclusive, bool) {
	for _, e := range c.Exclusives {
		if e.Key == key {
			return e, true
		}
	}
	return Exclusive{}, false
}

// VintagePhones returns the vintage keys that resolve to a known phone.
func (c *Catalog) VintagePhones() []Phone {
	out := make([]Phone, 0, len(c.VintageKeys))
	for _, key := range c.VintageKeys {
		if p, ok := c.Phone(key); ok {
			out = append(out, p)
		}
	}
	return out
}

// ItemName resolves a display name for any catalog key, falling back to the key.
func (c *Catalog) ItemName(t model.ItemType, key string) string {
	switch t {
	case model.ItemPhone:
		if p, ok := c.Phone(key); ok {
			return p.Name
		}
		if e, ok := c.Exclusive(key); ok {
			return e.Name
		}
	case model.ItemComponent:
		for _, p := range c.Components {
			if p.Key == key {
				return p.Name
			}
		}
	case model.ItemCase:
		for _, p := range c.Cases {
			if p.Key == key {
				return p.Name
			}
		}
	}
	return key
}

// Colors returns the palette for a phone key; exclusives have their single fixed color.
func (c *Catalog) Colors(key string) []string {
	if p, ok := c.Phone(key); ok {
		return p.Colors
	}
	if e, ok := c.Exclusive(key); ok && e.Color != "" {
		return []string{e.Color}
	}
	return nil
}
