package model

import (
	"encoding/json"
	"fmt"
)

// WearKind identifies a WearEffect variant in its serialized form.
type WearKind string

const (
	WearReducedBattery       WearKind = "reduced_battery"
	WearIncreasedBreakChance WearKind = "increased_break_chance"
	WearCosmeticDefect       WearKind = "cosmetic_defect"
)

// WearEffect is a negative attribute attached to a worn item. The set of
// variants is closed: ReducedBattery, IncreasedBreakChance, CosmeticDefect.
type WearEffect interface {
	Kind() WearKind
	Describe() string
	wearEffect()
}

// ReducedBattery multiplies the phone's battery capacity by Factor.
type ReducedBattery struct {
	Factor float64
}

// IncreasedBreakChance multiplies the phone's break chance by Factor.
type IncreasedBreakChance struct {
	Factor float64
}

// CosmeticDefect is a purely visual flaw.
type CosmeticDefect struct {
	Text string
}

func (ReducedBattery) Kind() WearKind       { return WearReducedBattery }
func (IncreasedBreakChance) Kind() WearKind { return WearIncreasedBreakChance }
func (CosmeticDefect) Kind() WearKind       { return WearCosmeticDefect }

func (w ReducedBattery) Describe() string {
	return fmt.Sprintf("battery holds %d%% of its charge", int(w.Factor*100+0.5))
}

func (w IncreasedBreakChance) Describe() string {
	return fmt.Sprintf("breaks %.1fx more often", w.Factor)
}

func (w CosmeticDefect) Describe() string { return w.Text }

func (ReducedBattery) wearEffect()       {}
func (IncreasedBreakChance) wearEffect() {}
func (CosmeticDefect) wearEffect()       {}

// wearEnvelope is the wire form shared by JSON payloads and DB columns.
type wearEnvelope struct {
	Kind   WearKind `json:"kind"`
	Factor float64  `json:"factor,omitempty"`
	Text   string   `json:"text,omitempty"`
}

func toEnvelope(w WearEffect) *wearEnvelope {
	switch v := w.(type) {
	case nil:
		return nil
	case ReducedBattery:
		return &wearEnvelope{Kind: WearReducedBattery, Factor: v.Factor}
	case IncreasedBreakChance:
		return &wearEnvelope{Kind: WearIncreasedBreakChance, Factor: v.Factor}
	case CosmeticDefect:
		return &wearEnvelope{Kind: WearCosmeticDefect, Text: v.Text}
	}
	return nil
}

func (e *wearEnvelope) effect() (WearEffect, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Kind {
	case WearReducedBattery:
		return ReducedBattery{Factor: e.Factor}, nil
	case WearIncreasedBreakChance:
		return IncreasedBreakChance{Factor: e.Factor}, nil
	case WearCosmeticDefect:
		return CosmeticDefect{Text: e.Text}, nil
	}
	return nil, fmt.Errorf("unknown wear kind %q", e.Kind)
}

// MarshalWear encodes a wear effect for storage. A nil effect encodes to nil.
func MarshalWear(w WearEffect) ([]byte, error) {
	env := toEnvelope(w)
	if env == nil {
		return nil, nil
	}
	return json.Marshal(env)
}

// UnmarshalWear decodes the output of MarshalWear. Empty input yields a nil effect.
func UnmarshalWear(data []byte) (WearEffect, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env wearEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode wear data: %w", err)
	}
	return env.effect()
}
