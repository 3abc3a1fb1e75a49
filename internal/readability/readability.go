// Package readability computes classic surface statistics for a passage:
// Flesch-Kincaid grade, Flesch reading ease and simple complexity scores.
// It needs no model and complements the trained classifier.
package readability

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinTextLength is the minimum length of the trimmed text, in runes.
	MinTextLength = 10

	MinLevel = 1
	MaxLevel = 12
)

// ErrTextTooShort is returned for text shorter than MinTextLength.
var ErrTextTooShort = errors.New("text is too short for analysis")

// Metrics are raw counts and averages.
type Metrics struct {
	TotalSentences    int     `json:"total_sentences"`
	TotalWords        int     `json:"total_words"`
	TotalSyllables    int     `json:"total_syllables"`
	UniqueWords       int     `json:"unique_words"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	AvgWordLength     float64 `json:"avg_word_length"`
	SyllablesPerWord  float64 `json:"syllables_per_word"`
}

// Complexity holds 0-1 scores, except TextLength which is the word count.
type Complexity struct {
	Vocabulary        float64 `json:"vocabulary"`
	SentenceStructure float64 `json:"sentence_structure"`
	TextLength        int     `json:"text_length"`
}

// Result is the analysis of one passage.
type Result struct {
	ReadingLevel int        `json:"reading_level"`
	GradeLevel   float64    `json:"flesch_kincaid_grade"`
	ReadingEase  float64    `json:"flesch_reading_ease"`
	Complexity   Complexity `json:"complexity"`
	Metrics      Metrics    `json:"metrics"`

	// Confidence grows with the amount of text and saturates at 100 words.
	Confidence float64 `json:"confidence"`
}

var (
	sentenceSep = regexp.MustCompile(`[.!?]+`)
	nonLetters  = regexp.MustCompile(`[^a-z]`)
	vowelGroup  = regexp.MustCompile(`[aeiouy]+`)
)

// Analyze computes readability statistics for text.
func Analyze(text string) (*Result, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
		return nil, ErrTextTooShort
	}

	sentences := 0
	for _, s := range sentenceSep.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	// Text made only of terminators still counts as one sentence.
	sentences = max(sentences, 1)

	words := strings.Fields(text)
	unique := make(map[string]struct{}, len(words))
	chars, syllables := 0, 0
	for _, w := range words {
		chars += utf8.RuneCountInString(w)
		syllables += CountSyllables(w)
		unique[strings.ToLower(w)] = struct{}{}
	}

	n := float64(len(words))
	m := Metrics{
		TotalSentences:    sentences,
		TotalWords:        len(words),
		TotalSyllables:    syllables,
		UniqueWords:       len(unique),
		AvgSentenceLength: n / float64(sentences),
		AvgWordLength:     float64(chars) / n,
		SyllablesPerWord:  float64(syllables) / n,
	}

	grade := FleschKincaidGrade(m.AvgSentenceLength, m.SyllablesPerWord)

	return &Result{
		ReadingLevel: Level(grade),
		GradeLevel:   grade,
		ReadingEase:  FleschReadingEase(m.AvgSentenceLength, m.SyllablesPerWord),
		Complexity: Complexity{
			Vocabulary:        float64(m.UniqueWords) / n,
			SentenceStructure: math.Min(m.AvgSentenceLength/20, 1),
			TextLength:        m.TotalWords,
		},
		Metrics:    m,
		Confidence: math.Min(n/100, 1),
	}, nil
}

// CountSyllables estimates syllables as the number of vowel groups in the
// ASCII letters of word. Every word has at least one.
func CountSyllables(word string) int {
	cleaned := nonLetters.ReplaceAllString(strings.ToLower(word), "")
	return max(len(vowelGroup.FindAllStringIndex(cleaned, -1)), 1)
}

// FleschKincaidGrade returns the U.S. grade level for the given words per
// sentence and syllables per word.
func FleschKincaidGrade(wordsPerSentence, syllablesPerWord float64) float64 {
	return 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
}

// FleschReadingEase returns the 0-100 ease score. Higher is easier; values
// outside the range are possible for extreme text.
func FleschReadingEase(wordsPerSentence, syllablesPerWord float64) float64 {
	return 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
}

// Level rounds a grade to the nearest whole level in [MinLevel, MaxLevel].
func Level(grade float64) int {
	return min(max(int(math.Round(grade)), MinLevel), MaxLevel)
}
