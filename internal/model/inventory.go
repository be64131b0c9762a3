package model

import (
	"encoding/json"
	"time"
)

// Inventory item sources.
const (
	SourceBlackMarket = "black_market"
	SourceAdmin       = "admin"
)

// InventoryItem is an owned phone, component or case.
type InventoryItem struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	ItemKey    string      `json:"item_key"`
	ItemType   ItemType    `json:"item_type"`
	Quantity   int         `json:"quantity"`
	Color      string      `json:"color,omitempty"`
	Wear       WearEffect  `json:"-"`
	Custom     *CustomData `json:"custom_data,omitempty"`
	Defective  bool        `json:"defective"`
	Source     string      `json:"source"`
	IsActive   bool        `json:"is_active"`
	AcquiredAt time.Time   `json:"acquired_at"`
}

type inventoryAlias InventoryItem

type inventoryJSON struct {
	inventoryAlias
	Wear *wearEnvelope `json:"wear_data,omitempty"`
}

// MarshalJSON encodes the wear variant through its tagged envelope.
func (i InventoryItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(inventoryJSON{inventoryAlias: inventoryAlias(i), Wear: toEnvelope(i.Wear)})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (i *InventoryItem) UnmarshalJSON(data []byte) error {
	var v inventoryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	wear, err := v.Wear.effect()
	if err != nil {
		return err
	}
	*i = InventoryItem(v.inventoryAlias)
	i.Wear = wear
	return nil
}
