package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

type TruncationPolicy string

const (
	PolicyOldestFirst        TruncationPolicy = "oldest_first"
	PolicyLeastRelevantFirst TruncationPolicy = "least_relevant_first"
)

func ParsePolicy(raw string) (TruncationPolicy, error) {
	switch TruncationPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyOldestFirst:
		return PolicyOldestFirst, nil
	case PolicyLeastRelevantFirst:
		return PolicyLeastRelevantFirst, nil
	default:
		return "", fmt.Errorf("%w: unknown truncation policy %q", contractx.ErrValidation, raw)
	}
}

// perEntryTokens approximates the role/framing overhead of one chat message.
const perEntryTokens = 4

// EstimateTokens is a provider-agnostic estimate: one token per four runes plus
// a fixed per-entry overhead.
func EstimateTokens(e contractx.Entry) int {
	return (utf8.RuneCountInString(e.Content)+3)/4 + perEntryTokens
}

type Budget struct {
	MaxEntries int
	MaxTokens  int
}

func (b Budget) fits(entries, tokens int) bool {
	if b.MaxEntries > 0 && entries > b.MaxEntries {
		return false
	}
	if b.MaxTokens > 0 && tokens > b.MaxTokens {
		return false
	}
	return true
}

type section int

const (
	sectionProduct section = iota
	sectionClient
	sectionSale
)

// dropRank breaks age ties: sales go first, products last.
func (s section) dropRank() int {
	switch s {
	case sectionSale:
		return 0
	case sectionClient:
		return 1
	default:
		return 2
	}
}

type fact struct {
	section  section
	index    int
	at       time.Time
	entry    contractx.Entry
	keywords string
}

// fit returns the facts that survive the budget, in their original order.
// Head entries and the user entry are never dropped.
func (b Budget) fit(
	head []contractx.Entry,
	facts []fact,
	user contractx.Entry,
	policy TruncationPolicy,
) ([]fact, contractx.TruncationReport) {
	entries := len(head) + len(facts) + 1
	tokens := EstimateTokens(user)
	for _, e := range head {
		tokens += EstimateTokens(e)
	}
	for _, f := range facts {
		tokens += EstimateTokens(f.entry)
	}

	if b.fits(entries, tokens) {
		return facts, contractx.TruncationReport{}
	}

	order := dropOrder(facts, user.Content, policy)
	dropped := make([]bool, len(facts))
	var report contractx.TruncationReport
	for _, i := range order {
		if b.fits(entries, tokens) {
			break
		}
		dropped[i] = true
		entries--
		tokens -= EstimateTokens(facts[i].entry)
		switch facts[i].section {
		case sectionProduct:
			report.Products++
		case sectionClient:
			report.Clients++
		case sectionSale:
			report.Sales++
		}
	}

	kept := make([]fact, 0, len(facts)-report.Dropped())
	for i, f := range facts {
		if !dropped[i] {
			kept = append(kept, f)
		}
	}
	return kept, report
}

// dropOrder returns fact positions, first to be dropped first.
func dropOrder(facts []fact, message string, policy TruncationPolicy) []int {
	order := make([]int, len(facts))
	for i := range facts {
		order[i] = i
	}

	var relevance []int
	if policy == PolicyLeastRelevantFirst {
		words := wordSet(message)
		relevance = make([]int, len(facts))
		for i, f := range facts {
			relevance[i] = overlap(words, f.keywords)
		}
	}

	sort.SliceStable(order, func(x, y int) bool {
		a, b := facts[order[x]], facts[order[y]]
		if relevance != nil && relevance[order[x]] != relevance[order[y]] {
			return relevance[order[x]] < relevance[order[y]]
		}
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if a.section != b.section {
			return a.section.dropRank() < b.section.dropRank()
		}
		return a.index < b.index
	})
	return order
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range tokenize(s) {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(words map[string]struct{}, text string) int {
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, w := range tokenize(text) {
		if _, ok := words[w]; !ok {
			continue
		}
		seen[w] = struct{}{}
	}
	return len(seen)
}
