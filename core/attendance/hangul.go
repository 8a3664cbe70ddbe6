package attendance

import "strings"

// Hangul syllable block (가..힣). Each lead consonant spans 588 syllables
// (21 medial vowels × 28 final consonants).
const (
	hangulBase      = rune(0xAC00)
	hangulLast      = rune(0xD7A3)
	syllablesPerLead = 588
)

// leadConsonants is the 19-entry choseong table, indexed by
// (codepoint − hangulBase) / 588.
var leadConsonants = [19]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ',
	'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// LeadConsonants extracts the lead consonant of every Hangul syllable in s
// and concatenates them. Runes outside the syllable block contribute
// nothing; they never fail the scan.
func LeadConsonants(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < hangulBase || r > hangulLast {
			continue
		}
		b.WriteRune(leadConsonants[(r-hangulBase)/syllablesPerLead])
	}
	return b.String()
}

// matchesQuery reports whether text matches the search query either as a
// case-insensitive literal substring or through its lead-consonant
// projection. An empty query matches everything.
func matchesQuery(text, query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(query)) {
		return true
	}
	return strings.Contains(LeadConsonants(text), query)
}
