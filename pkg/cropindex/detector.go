package cropindex

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"kisaanbot-be/internal/entity"
)

const (
	// Fuzzy acceptance thresholds, stricter for shorter tokens.
	fuzzyThresholdShort  = 92 // tokens of length <= 4
	fuzzyThresholdMedium = 88 // 5..7
	fuzzyThresholdLong   = 85 // 8+
	fuzzyPhraseThreshold = 88

	// Two top candidates within this many points are ambiguous.
	ambiguityMargin = 2
)

type MatchType string

const (
	MatchExactPhrase MatchType = "exact_phrase"
	MatchExactWord   MatchType = "exact_word"
	MatchFuzzyPhrase MatchType = "fuzzy_phrase"
	MatchFuzzyToken  MatchType = "fuzzy_token"
)

var typePriority = map[MatchType]int{
	MatchExactPhrase: 4,
	MatchExactWord:   3,
	MatchFuzzyPhrase: 2,
	MatchFuzzyToken:  1,
}

type Match struct {
	MasterName   string
	Score        float64
	MatchType    MatchType
	MatchedAlias string
}

type DetectionResult struct {
	Best       *Match
	Candidates []Match
	Ambiguous  bool
}

// Detector is an immutable alias index over a crop vocabulary snapshot.
// Rebuild it when the vocabulary changes.
type Detector struct {
	aliasToMasters map[string][]string

	singleWordAliases []string
	multiWordAliases  []string
}

func NewDetector(crops []entity.CropEntry) *Detector {
	d := &Detector{aliasToMasters: make(map[string][]string)}

	for _, crop := range crops {
		d.addAlias(crop.MasterName, crop.MasterName)
		for _, syn := range crop.Synonyms {
			if syn.EN != "" {
				d.addAlias(crop.MasterName, syn.EN)
			}
			if syn.HI != "" {
				d.addAlias(crop.MasterName, syn.HI)
			}
		}
	}

	for alias := range d.aliasToMasters {
		if strings.Contains(alias, " ") {
			d.multiWordAliases = append(d.multiWordAliases, alias)
		} else {
			d.singleWordAliases = append(d.singleWordAliases, alias)
		}
	}
	// longer multi-word aliases first, they are more specific
	sort.Slice(d.multiWordAliases, func(i, j int) bool {
		return len(d.multiWordAliases[i]) > len(d.multiWordAliases[j])
	})
	sort.Strings(d.singleWordAliases)

	return d
}

func (d *Detector) addAlias(master, raw string) {
	alias := NormalizeText(raw)
	if alias == "" {
		return
	}
	d.storeAlias(master, alias)
	for _, v := range TransliterationVariants(alias) {
		if vn := NormalizeText(v); vn != "" && vn != alias {
			d.storeAlias(master, vn)
		}
	}
}

func (d *Detector) storeAlias(master, alias string) {
	for _, m := range d.aliasToMasters[alias] {
		if m == master {
			return
		}
	}
	d.aliasToMasters[alias] = append(d.aliasToMasters[alias], master)
}

// Identify matches free text against the alias index: exact phrase and word
// hits score 100, then fuzzy token/phrase matches. Candidates are reduced to
// one best score per crop; a top-two gap of <= 2 points is ambiguous.
func (d *Detector) Identify(query string, topK int) DetectionResult {
	qNorm := NormalizeText(query)
	if qNorm == "" {
		return DetectionResult{}
	}

	variants := []string{qNorm}
	for _, v := range TransliterationVariants(qNorm) {
		if vn := NormalizeText(v); vn != "" && vn != qNorm {
			variants = append(variants, vn)
		}
	}

	var all []Match
	for _, qv := range variants {
		all = append(all, d.detectVariant(qv)...)
		if hasExact(all) {
			break
		}
	}

	ranked := rankCandidates(all)
	return finalize(ranked, topK)
}

func hasExact(ms []Match) bool {
	for _, m := range ms {
		if m.MatchType == MatchExactPhrase || m.MatchType == MatchExactWord {
			return true
		}
	}
	return false
}

func (d *Detector) detectVariant(qNorm string) []Match {
	var candidates []Match
	qTokens := strings.Fields(qNorm)
	tokenSet := make(map[string]bool, len(qTokens))
	for _, t := range qTokens {
		tokenSet[t] = true
	}

	// 1) exact phrase containment (multi-word aliases, longest first)
	for _, alias := range d.multiWordAliases {
		if strings.Contains(qNorm, alias) {
			for _, master := range d.aliasToMasters[alias] {
				candidates = append(candidates, Match{master, 100, MatchExactPhrase, alias})
			}
		}
	}

	// 2) exact word membership (single-word aliases)
	for _, alias := range d.singleWordAliases {
		if tokenSet[alias] {
			for _, master := range d.aliasToMasters[alias] {
				candidates = append(candidates, Match{master, 100, MatchExactWord, alias})
			}
		}
	}

	if len(candidates) > 0 {
		return candidates
	}

	// 3) fuzzy token match for misspellings
	for _, tok := range qTokens {
		if len([]rune(tok)) < 2 {
			continue
		}
		threshold := fuzzyThresholdLong
		switch n := len([]rune(tok)); {
		case n <= 4:
			threshold = fuzzyThresholdShort
		case n <= 7:
			threshold = fuzzyThresholdMedium
		}

		bestAlias, bestScore := "", 0
		for _, alias := range d.singleWordAliases {
			if score := fuzzy.Ratio(tok, alias); score > bestScore {
				bestAlias, bestScore = alias, score
			}
		}
		if bestAlias != "" && bestScore >= threshold {
			for _, master := range d.aliasToMasters[bestAlias] {
				candidates = append(candidates, Match{master, float64(bestScore), MatchFuzzyToken, bestAlias})
			}
		}
	}

	// 4) fuzzy phrase match (alias as part of the query)
	if len([]rune(qNorm)) >= 4 {
		bestAlias, bestScore := "", 0
		for _, alias := range d.multiWordAliases {
			if score := fuzzy.PartialRatio(qNorm, alias); score > bestScore {
				bestAlias, bestScore = alias, score
			}
		}
		if bestAlias != "" && bestScore >= fuzzyPhraseThreshold {
			for _, master := range d.aliasToMasters[bestAlias] {
				candidates = append(candidates, Match{master, float64(bestScore), MatchFuzzyPhrase, bestAlias})
			}
		}
	}

	return candidates
}

func rankCandidates(candidates []Match) []Match {
	if len(candidates) == 0 {
		return nil
	}

	bestByMaster := make(map[string]Match)
	for _, c := range candidates {
		prev, ok := bestByMaster[c.MasterName]
		if !ok || c.Score > prev.Score ||
			(c.Score == prev.Score && typePriority[c.MatchType] > typePriority[prev.MatchType]) {
			bestByMaster[c.MasterName] = c
		}
	}

	ranked := make([]Match, 0, len(bestByMaster))
	for _, m := range bestByMaster {
		ranked = append(ranked, m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if pi, pj := typePriority[ranked[i].MatchType], typePriority[ranked[j].MatchType]; pi != pj {
			return pi > pj
		}
		return ranked[i].MasterName < ranked[j].MasterName
	})
	return ranked
}

func finalize(ranked []Match, topK int) DetectionResult {
	if len(ranked) == 0 {
		return DetectionResult{}
	}
	if topK <= 0 || topK > len(ranked) {
		topK = len(ranked)
	}

	ambiguous := len(ranked) >= 2 && ranked[0].Score-ranked[1].Score <= ambiguityMargin

	res := DetectionResult{
		Candidates: ranked[:topK],
		Ambiguous:  ambiguous,
	}
	if !ambiguous {
		best := ranked[0]
		res.Best = &best
	}
	return res
}
