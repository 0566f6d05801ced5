// Package voice matches spoken transcripts against colour names.
//
// Matching is per word: the transcript is lower-cased and split on
// whitespace, and each word is scored against the target with a
// normalised Levenshtein similarity. A score of at least Threshold counts
// as a match.
package voice

import (
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/jughead-core/internal/ball"
)

// Threshold is the minimum similarity for a word to match.
const Threshold = 0.8

// Similarity returns 1 - distance/maxLen for the edit distance between a
// and b, compared rune by rune. Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein([]rune(a), []rune(b)))/float64(maxLen)
}

// levenshtein computes the edit distance with a single rolling row.
func levenshtein(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, diag+cost)
			diag = row[j]
			row[j] = next
		}
	}
	return row[len(b)]
}

// BestMatch returns the transcript word most similar to target and its
// score. Ties keep the earliest word. An empty transcript scores 0.
func BestMatch(transcript, target string) (string, float64) {
	target = strings.ToLower(target)
	var (
		bestWord  string
		bestScore float64
	)
	for _, word := range strings.Fields(strings.ToLower(transcript)) {
		if s := Similarity(word, target); s > bestScore {
			bestWord, bestScore = word, s
		}
	}
	return bestWord, bestScore
}

// Match is a colour recognised in a transcript.
type Match struct {
	Name  string     `json:"name"`
	Word  string     `json:"word"`
	Score float64    `json:"score"`
	Color ball.Color `json:"color"`
}

// MatchColor finds the palette colour best matching any transcript word.
// ok is false when no colour reaches Threshold. Ties keep palette order.
func MatchColor(transcript string) (Match, bool) {
	var best Match
	for _, nc := range ball.Palette() {
		word, score := BestMatch(transcript, nc.Name)
		if score > best.Score {
			best = Match{Name: nc.Name, Word: word, Score: score, Color: nc.Color}
		}
	}
	return best, best.Score >= Threshold
}
