package cropindex

import (
	"testing"

	"kisaanbot-be/internal/entity"
)

func testCrops() []entity.CropEntry {
	return []entity.CropEntry{
		{MasterName: "Wheat", Synonyms: []entity.SynonymPair{{EN: "gehu", HI: "गेहूं"}, {EN: "gehun", HI: ""}}},
		{MasterName: "Rice", Synonyms: []entity.SynonymPair{{EN: "dhan", HI: "धान"}, {EN: "chawal", HI: "चावल"}}},
		{MasterName: "Black Gram", Synonyms: []entity.SynonymPair{{EN: "urad", HI: "उड़द"}}},
		{MasterName: "Green Gram", Synonyms: []entity.SynonymPair{{EN: "moong", HI: "मूंग"}}},
		{MasterName: "Mustard", Synonyms: []entity.SynonymPair{{EN: "sarson", HI: "सरसों"}}},
		{MasterName: "Pigeon Pea", Synonyms: []entity.SynonymPair{{EN: "arhar dal", HI: "अरहर"}}},
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	cases := []string{
		"  Gehu!!  mein   rog ",
		"गेहूं में कीड़े",
		"MIXED गेहूं and gehu?",
	}
	for _, in := range cases {
		once := NormalizeText(in)
		twice := NormalizeText(once)
		if once != twice {
			t.Errorf("NormalizeText not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestNormalizeTextKeepsDevanagariMarks(t *testing.T) {
	got := NormalizeText("गेहूं")
	if got != "गेहूं" {
		t.Errorf("matras or anusvara were stripped: got %q", got)
	}
}

func TestIdentifyExactWord(t *testing.T) {
	d := NewDetector(testCrops())

	res := d.Identify("gehu mein rog lag gaya", 3)
	if res.Ambiguous {
		t.Fatalf("unexpected ambiguity: %+v", res.Candidates)
	}
	if res.Best == nil {
		t.Fatal("expected a best match")
	}
	if res.Best.MasterName != "Wheat" {
		t.Errorf("master = %q, want Wheat", res.Best.MasterName)
	}
	if res.Best.Score != 100 {
		t.Errorf("score = %v, want 100", res.Best.Score)
	}
	if res.Best.MatchType != MatchExactWord {
		t.Errorf("type = %q, want exact_word", res.Best.MatchType)
	}
}

func TestIdentifyExactPhrase(t *testing.T) {
	d := NewDetector(testCrops())

	res := d.Identify("meri arhar dal mein keede", 3)
	if res.Best == nil {
		t.Fatal("expected a best match")
	}
	if res.Best.MasterName != "Pigeon Pea" {
		t.Errorf("master = %q, want Pigeon Pea", res.Best.MasterName)
	}
	if res.Best.MatchType != MatchExactPhrase {
		t.Errorf("type = %q, want exact_phrase", res.Best.MatchType)
	}
}

func TestIdentifyDevanagari(t *testing.T) {
	d := NewDetector(testCrops())

	res := d.Identify("गेहूं में रोग", 3)
	if res.Best == nil {
		t.Fatal("expected a best match")
	}
	if res.Best.MasterName != "Wheat" {
		t.Errorf("master = %q, want Wheat", res.Best.MasterName)
	}
}

func TestIdentifyFuzzyMisspelling(t *testing.T) {
	d := NewDetector(testCrops())

	res := d.Identify("sarsoon mein mahu", 3)
	if res.Best == nil {
		t.Fatalf("expected a best match, got %+v", res)
	}
	if res.Best.MasterName != "Mustard" {
		t.Errorf("master = %q, want Mustard", res.Best.MasterName)
	}
	if res.Best.MatchType != MatchFuzzyToken && res.Best.MatchType != MatchFuzzyPhrase {
		t.Errorf("type = %q, want a fuzzy match", res.Best.MatchType)
	}
}

func TestIdentifyAmbiguousOnCloseScores(t *testing.T) {
	d := NewDetector(testCrops())

	// two exact hits for different crops in the same message
	res := d.Identify("urad aur moong dono", 3)
	if !res.Ambiguous {
		t.Fatalf("expected ambiguity, got best %+v", res.Best)
	}
	if res.Best != nil {
		t.Error("ambiguous result must not carry a best match")
	}
	if len(res.Candidates) < 2 {
		t.Fatalf("candidates = %d, want >= 2", len(res.Candidates))
	}
	names := map[string]bool{}
	for _, c := range res.Candidates {
		names[c.MasterName] = true
	}
	if !names["Black Gram"] || !names["Green Gram"] {
		t.Errorf("candidates = %v, want Black Gram and Green Gram", res.Candidates)
	}
}

func TestIdentifyNoMatch(t *testing.T) {
	d := NewDetector(testCrops())

	res := d.Identify("namaste kaise ho", 3)
	if res.Best != nil || res.Ambiguous || len(res.Candidates) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestFuzzyThresholdRejectsShortNoise(t *testing.T) {
	d := NewDetector(testCrops())

	// "dal" alone is close to "dhan" by edit distance but below the
	// short-token threshold
	res := d.Identify("dal", 3)
	for _, c := range res.Candidates {
		if c.MatchType == MatchFuzzyToken && c.Score < fuzzyThresholdShort {
			t.Errorf("sub-threshold fuzzy candidate leaked: %+v", c)
		}
	}
}

func TestTransliterationVariants(t *testing.T) {
	vs := TransliterationVariants("गेहूं")
	if len(vs) == 0 {
		t.Fatal("expected a roman variant for Devanagari input")
	}
	if !HasLatin(vs[0]) {
		t.Errorf("variant %q is not roman", vs[0])
	}

	vs = TransliterationVariants("moong")
	if len(vs) == 0 {
		t.Fatal("expected a Devanagari variant for roman input")
	}
	if !HasDevanagari(vs[0]) {
		t.Errorf("variant %q is not Devanagari", vs[0])
	}
}
