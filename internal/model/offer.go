package model

import (
	"encoding/json"
	"time"
)

// ItemType is the catalog an item key points into.
type ItemType string

const (
	ItemPhone     ItemType = "phone"
	ItemComponent ItemType = "component"
	ItemCase      ItemType = "case"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == ItemPhone || t == ItemComponent || t == ItemCase
}

// ExclusiveKind distinguishes the two exclusive offer flavors.
type ExclusiveKind string

const (
	ExclusiveCustom  ExclusiveKind = "custom"
	ExclusiveVintage ExclusiveKind = "vintage"
)

// CustomData carries the flavor bundle of an exclusive item.
type CustomData struct {
	Kind        ExclusiveKind `json:"kind"`
	Name        string        `json:"name,omitempty"`
	FixedColor  string        `json:"fixed_color,omitempty"`
	BonusText   string        `json:"bonus_text,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Offer is one personalized black market slot.
type Offer struct {
	UserID        int64       `json:"user_id"`
	SlotNumber    int         `json:"slot_number"`
	ItemKey       string      `json:"item_key"`
	ItemType      ItemType    `json:"item_type"`
	CurrentPrice  int64       `json:"current_price"`
	OriginalPrice int64       `json:"original_price"`
	IsStolen      bool        `json:"is_stolen"`
	IsExclusive   bool        `json:"is_exclusive"`
	Quantity      int         `json:"quantity_available"`
	Wear          WearEffect  `json:"-"`
	Custom        *CustomData `json:"custom_data,omitempty"`
	GeneratedAt   time.Time   `json:"generated_at"`
	IsPurchased   bool        `json:"is_purchased"`
}

type offerAlias Offer

type offerJSON struct {
	offerAlias
	Wear *wearEnvelope `json:"wear_data,omitempty"`
}

// MarshalJSON encodes the wear variant through its tagged envelope.
func (o Offer) MarshalJSON() ([]byte, error) {
	return json.Marshal(offerJSON{offerAlias: offerAlias(o), Wear: toEnvelope(o.Wear)})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Offer) UnmarshalJSON(data []byte) error {
	var v offerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	wear, err := v.Wear.effect()
	if err != nil {
		return err
	}
	*o = Offer(v.offerAlias)
	o.Wear = wear
	return nil
}

// SameDeal reports whether two snapshots of a slot describe the same purchase terms.
func (o Offer) SameDeal(other Offer) bool {
	return o.UserID == other.UserID &&
		o.SlotNumber == other.SlotNumber &&
		o.ItemKey == other.ItemKey &&
		o.ItemType == other.ItemType &&
		o.CurrentPrice == other.CurrentPrice &&
		o.GeneratedAt.Equal(other.GeneratedAt)
}
