// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality scores extracted text layers to decide whether a page
// needs vision-model OCR. Scanned pages produce empty or garbled text
// layers; the score separates those from genuine text.
package quality

import (
	"math"
	"strings"
	"unicode"
)

// Decision is the outcome of scoring one page's text layer.
type Decision struct {
	// Quality is a 0..1 score; higher means the text layer is usable.
	Quality float64

	// NeedsOCR reports whether the page should go to the vision model.
	NeedsOCR bool

	// Reasons lists the penalties applied, for log lines.
	Reasons []string

	// WordCount is the whitespace-separated word count of the page.
	WordCount int
}

// needsOCRThreshold is the quality score at or below which a page is sent to OCR.
const needsOCRThreshold = 0.5

// CountWords returns the number of whitespace-separated words in s.
func CountWords(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}

// Score evaluates a page's text layer. minWords is the word count below
// which the page is penalized as too sparse.
func Score(text string, minWords int) Decision {
	clean := strings.TrimSpace(text)
	wc := CountWords(clean)

	total := float64(len([]rune(clean)))
	if total == 0 {
		return Decision{NeedsOCR: true, Reasons: []string{"empty_text"}}
	}

	alpha := float64(countIf(clean, unicode.IsLetter))
	digits := float64(countIf(clean, unicode.IsDigit))
	garbage := float64(countGarbage(clean))

	alphaRatio := alpha / total
	digitRatio := digits / total
	garbageRatio := garbage / total

	score := 1.0
	var reasons []string

	if wc < minWords {
		penalty := 0.45
		if wc < minWords/2 {
			penalty = 0.60
		}
		score -= penalty
		reasons = append(reasons, "low_word_count")
	}

	// Technical documents carry symbols and numbers; only penalize an
	// alpha ratio low enough to indicate a broken text layer.
	if alphaRatio < 0.25 {
		penalty := 0.35
		if alphaRatio < 0.15 {
			penalty = 0.50
		}
		if digitRatio > 0.20 {
			penalty *= 0.6
		}
		score -= penalty
		reasons = append(reasons, "low_alpha_ratio")
	}

	if garbageRatio > 0.01 {
		score -= math.Min(0.50, garbageRatio*50)
		reasons = append(reasons, "garbage_chars")
	}

	if score < 0 {
		score = 0
	}

	return Decision{
		Quality:   score,
		NeedsOCR:  score <= needsOCRThreshold,
		Reasons:   reasons,
		WordCount: wc,
	}
}

func countIf(s string, pred func(rune) bool) int {
	n := 0
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}

// countGarbage counts replacement characters and control runes that
// indicate a corrupted extraction.
func countGarbage(s string) int {
	n := 0
	for _, r := range s {
		if r == unicode.ReplacementChar {
			n++
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			n++
		}
	}
	return n
}
