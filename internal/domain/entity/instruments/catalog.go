package instruments

// Category groups catalog symbols by instrument class. Membership is
// static configuration, never derived from market data.
type Category string

const (
	CategoryFixedRate    Category = "fixed_rate"
	CategorySovereign    Category = "sovereign"
	CategoryDollarLinked Category = "dollar_linked"
	CategoryBopreal      Category = "bopreal"
	CategoryCER          Category = "cer"
	CategoryRepo         Category = "repo"
	CategoryDollarFuture Category = "dollar_future"
)

func (c Category) String() string {
	return string(c)
}

// categoryOrder fixes the iteration order of the catalog.
var categoryOrder = []Category{
	CategoryFixedRate,
	CategorySovereign,
	CategoryDollarLinked,
	CategoryBopreal,
	CategoryCER,
	CategoryRepo,
	CategoryDollarFuture,
}

var catalog = map[Category][]string{
	CategoryFixedRate: {
		"S31M5", "S16A5", "BBA2S", "S28A5", "S16Y5", "BBY5", "S30Y5", "S18J5", "BJ25",
		"S30J5", "S31L5", "S29G5", "S29S5", "S30S5", "T17O5", "S30L5", "S10N5",
		"S28N5", "T30E6", "T3F6", "T30J6", "T15E7",
	},
	CategorySovereign: {
		"AL29", "AL29D", "AL30", "AL30D", "AL35", "AL35D", "AL41D", "AL41",
		"AL14D", "GD29", "GD29D", "GD30", "GD30D", "GD35", "GD35D", "GD38",
		"GD38D", "GD41", "GD41D", "GD46", "GD46D",
	},
	CategoryDollarLinked: {
		"TV25", "TZV25", "TZVD5", "D16F6", "TZV26",
	},
	CategoryBopreal: {
		"BPJ5D", "BPA7D", "BPB7D", "BPC7D", "BPD7D", "BPOD7", "BPY26", "BPY26D", "BPO27", "BPJ25", "BPJ25D",
	},
	CategoryCER: {
		"TZXM5", "TC24", "TZXJ5", "TZX05", "TZXKD5", "TZXM6", "TX06", "TX26",
		"TZXM7", "TX27", "TXD7", "TX28",
	},
	CategoryRepo: {
		"CAUCI1", "CAUCI2",
	},
	CategoryDollarFuture: {
		"DOFUTABR24", "DOFUTJUN24",
	},
}

// Categories returns the catalog categories in their fixed order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ByCategory returns the symbols of one category in listing order.
func ByCategory(c Category) []string {
	symbols, ok := catalog[c]
	if !ok {
		return nil
	}
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out
}

// Symbols returns every catalog symbol, ordered by category and listing
// position within the category.
func Symbols() []string {
	var out []string
	for _, c := range categoryOrder {
		out = append(out, catalog[c]...)
	}
	return out
}

// CategoryOf resolves the category a symbol belongs to.
func CategoryOf(symbol string) (Category, bool) {
	for _, c := range categoryOrder {
		for _, s := range catalog[c] {
			if s == symbol {
				return c, true
			}
		}
	}
	return "", false
}
