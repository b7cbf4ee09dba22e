package utils

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Fuzzy string similarity on a 0-100 scale, computed over edit distance.
// Inputs are expected to be normalized already (see NormalizeSpace).

func Ratio(a string, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	score := (longest - dist) * 100 / longest
	if score < 0 {
		score = 0
	}
	return score
}

// PartialRatio is the best Ratio of the shorter string against every
// same-length window of the longer one. A query that appears verbatim inside
// a search blob scores 100 regardless of the rest of the blob.
func PartialRatio(a string, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if strings.Contains(string(longer), string(shorter)) {
		return 100
	}
	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		score := Ratio(string(shorter), string(longer[i:i+len(shorter)]))
		if score > best {
			best = score
		}
	}
	return best
}

// TokenSetRatio compares the two strings as word sets, so token order and
// repeated tokens do not matter.
func TokenSetRatio(a string, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(base, combinedA)
	if s := Ratio(base, combinedB); s > best {
		best = s
	}
	if s := Ratio(combinedA, combinedB); s > best {
		best = s
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}
