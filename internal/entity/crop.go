package entity

// SynonymPair is one localized display form of a crop name. Either side may
// be empty, never both.
type SynonymPair struct {
	EN string `json:"en"`
	HI string `json:"hi"`
}

// CropEntry is one canonical crop in the self-growing vocabulary.
type CropEntry struct {
	MasterName string        `json:"master_name"`
	Synonyms   []SynonymPair `json:"synonyms"`
}

// AmbiguityEntry is a curated mapping from trigger phrases to several real
// crops. Curated entries override automatic matching, including exact hits:
// some words are lexically identical across crops (one Hindi word covers both
// lemon and acid lime).
type AmbiguityEntry struct {
	InputWord     SynonymPair  `json:"input_word"`
	Variations    []string     `json:"variations"`
	ResolvesTo    []string     `json:"resolves_to"`
	ButtonOptions []CropOption `json:"button_options"`
}

// Vocabulary is the on-disk shape of crops.json.
type Vocabulary struct {
	Crops          []CropEntry      `json:"crops"`
	AmbiguousNames []AmbiguityEntry `json:"ambiguous_names"`
}

// HindiNameFor returns the first Hindi synonym registered for a master name,
// falling back to the master name itself.
func (v *Vocabulary) HindiNameFor(masterName string) string {
	for _, c := range v.Crops {
		if c.MasterName != masterName {
			continue
		}
		for _, s := range c.Synonyms {
			if s.HI != "" {
				return s.HI
			}
		}
	}
	return masterName
}

// MasterNames returns the canonical names in registration order.
func (v *Vocabulary) MasterNames() []string {
	names := make([]string, 0, len(v.Crops))
	for _, c := range v.Crops {
		if c.MasterName != "" {
			names = append(names, c.MasterName)
		}
	}
	return names
}
