package catalog

import "phonemarket-bot/internal/model"

// Default returns the built-in game tables.
func Default() *Catalog {
	return &Catalog{
		Phones:          phones,
		Components:      components,
		Cases:           cases,
		Exclusives:      exclusives,
		VintageKeys:     vintageKeys,
		VintageWearNote: "Scuffed corners and a faded logo: it has seen a few decades.",
		StolenEffects:   stolenEffects,
	}
}

var basicColors = []string{"Black", "White", "Silver"}

var phones = []Phone{
	{Key: "nova_s1_64", Name: "Nova S1", Series: "Nova S", MemoryGB: 64, Price: 450, Colors: basicColors},
	{Key: "nova_s1_128", Name: "Nova S1", Series: "Nova S", MemoryGB: 128, Price: 550, Colors: basicColors},
	{Key: "nova_s2_128", Name: "Nova S2", Series: "Nova S", MemoryGB: 128, Price: 800, Colors: []string{"Black", "Blue", "Mint"}},
	{Key: "nova_s2_256", Name: "Nova S2", Series: "Nova S", MemoryGB: 256, Price: 950, Colors: []string{"Black", "Blue", "Mint"}},
	{Key: "nova_ultra_512", Name: "Nova Ultra", Series: "Nova S", MemoryGB: 512, Price: 1800, Colors: []string{"Titanium", "Black"}},
	{Key: "pixelon_7_128", Name: "Pixelon 7", Series: "Pixelon", MemoryGB: 128, Price: 700, Colors: []string{"Snow", "Obsidian", "Lemongrass"}},
	{Key: "pixelon_7_pro_256", Name: "Pixelon 7 Pro", Series: "Pixelon", MemoryGB: 256, Price: 1200, Colors: []string{"Snow", "Obsidian", "Hazel"}},
	{Key: "pixelon_8a_128", Name: "Pixelon 8a", Series: "Pixelon", MemoryGB: 128, Price: 520, Colors: []string{"Porcelain", "Obsidian", "Aloe"}},
	{Key: "fruit_12_64", Name: "Fruit 12", Series: "Fruit", MemoryGB: 64, Price: 650, Colors: []string{"Black", "White", "Red", "Purple"}},
	{Key: "fruit_13_128", Name: "Fruit 13", Series: "Fruit", MemoryGB: 128, Price: 900, Colors: []string{"Midnight", "Starlight", "Pink"}},
	{Key: "fruit_14_pro_256", Name: "Fruit 14 Pro", Series: "Fruit", MemoryGB: 256, Price: 1500, Colors: []string{"Space Black", "Gold", "Deep Purple"}},
	{Key: "fruit_15_pro_max_512", Name: "Fruit 15 Pro Max", Series: "Fruit", MemoryGB: 512, Price: 2200, Colors: []string{"Natural Titanium", "Blue Titanium"}},
	{Key: "brick_3310", Name: "Brick 3310", Series: "Brick", MemoryGB: 0, Price: 120, Colors: []string{"Dark Blue", "Red", "Yellow"}},
	{Key: "brick_6230", Name: "Brick 6230", Series: "Brick", MemoryGB: 0, Price: 180, Colors: []string{"Silver"}},
	{Key: "flip_razr_v3", Name: "Flip Razr V3", Series: "Flip", MemoryGB: 0, Price: 260, Colors: []string{"Silver", "Pink", "Black"}},
	{Key: "flip_fold_5_256", Name: "Flip Fold 5", Series: "Flip", MemoryGB: 256, Price: 2000, Colors: []string{"Icy Blue", "Phantom Black"}},
}

var components = []Component{
	{Key: "battery_std", Name: "Standard battery", Kind: "battery", Price: 60},
	{Key: "battery_ext", Name: "Extended battery", Kind: "battery", Price: 140},
	{Key: "screen_lcd", Name: "LCD screen", Kind: "screen", Price: 90},
	{Key: "screen_oled", Name: "OLED screen", Kind: "screen", Price: 220},
	{Key: "camera_module", Name: "Camera module", Kind: "camera", Price: 180},
	{Key: "charging_port", Name: "Charging port", Kind: "port", Price: 40},
	{Key: "speaker_unit", Name: "Speaker unit", Kind: "speaker", Price: 35},
	{Key: "memory_chip_256", Name: "256 GB memory chip", Kind: "memory", Price: 260},
}

var cases = []Case{
	{Key: "case_silicone", Name: "Silicone case", Price: 25, Protection: 0.15},
	{Key: "case_leather", Name: "Leather case", Price: 70, Protection: 0.2},
	{Key: "case_rugged", Name: "Rugged armor case", Price: 120, Protection: 0.45},
	{Key: "case_clear", Name: "Clear case", Price: 20, Protection: 0.1},
	{Key: "case_wallet", Name: "Wallet case", Price: 85, Protection: 0.25},
	{Key: "case_carbon", Name: "Carbon fiber case", Price: 160, Protection: 0.35},
}

var exclusives = []Exclusive{
	{
		Key: "excl_nova_gold_edition", Name: "Nova Ultra Gold Edition", Series: "Nova S", MemoryGB: 512, Price: 3200,
		Color: "24K Gold", BonusText: "Engraved serial number on the back panel.",
		Description: "One of fifty units assembled for a launch party that never happened.",
	},
	{
		Key: "excl_fruit_prototype", Name: "Fruit Prototype EVT", Series: "Fruit", MemoryGB: 256, Price: 4000,
		Color: "Engineering Gray", BonusText: "Boots into a hidden diagnostics menu.",
		Description: "A pre-release engineering unit that walked out of a lab.",
	},
	{
		Key: "excl_pixelon_artist", Name: "Pixelon 7 Artist Series", Series: "Pixelon", MemoryGB: 256, Price: 2600,
		Color: "Hand-painted Nebula", BonusText: "Signed by the painter inside the SIM tray.",
		Description: "Custom hand-painted shell, no two alike.",
	},
	{
		Key: "excl_brick_diamond", Name: "Brick 3310 Diamond", Series: "Brick", MemoryGB: 0, Price: 5000,
		Color: "Diamond Studded", BonusText: "Snake high score of 9999 preloaded.",
		Description: "Still survives a fall from the fourth floor.",
	},
}

var vintageKeys = []string{"brick_3310", "brick_6230", "flip_razr_v3"}

var stolenEffects = []EffectSpec{
	{Kind: model.WearReducedBattery, MinFactor: 0.6, MaxFactor: 0.85},
	{Kind: model.WearIncreasedBreakChance, MinFactor: 1.3, MaxFactor: 2.0},
	{Kind: model.WearCosmeticDefect, Texts: []string{
		"Deep scratch across the screen.",
		"Cracked back glass.",
		"Someone else's initials carved into the frame.",
		"Dead pixel cluster in the corner.",
	}},
}
