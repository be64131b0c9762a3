package model

import "time"

// PurchaseRecord is an audit entry written after a completed black market purchase.
type PurchaseRecord struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       int64     `json:"user_id" bson:"user_id"`
	SlotNumber   int       `json:"slot_number" bson:"slot_number"`
	ItemKey      string    `json:"item_key" bson:"item_key"`
	ItemType     ItemType  `json:"item_type" bson:"item_type"`
	Price        int64     `json:"price" bson:"price"`
	BalanceAfter int64     `json:"balance_after" bson:"balance_after"`
	IsStolen     bool      `json:"is_stolen" bson:"is_stolen"`
	IsExclusive  bool      `json:"is_exclusive" bson:"is_exclusive"`
	SellerTwist  string    `json:"seller_twist,omitempty" bson:"seller_twist,omitempty"`
	PurchasedAt  time.Time `json:"purchased_at" bson:"purchased_at"`
}
