package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"convoqa/internal/embedding/tfidf"
)

var sentenceRe = regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)

// LeadSentences returns at most n leading sentences of text. Text without
// sentence punctuation is returned trimmed.
func LeadSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || text == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) <= n {
		return text
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strings.TrimSpace(sentences[i])
	}
	return strings.Join(out, " ")
}

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	stop := make(map[string]struct{}, len(tfidf.EnglishStopWords))
	for _, w := range tfidf.EnglishStopWords {
		stop[w] = struct{}{}
	}
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    stop,
	}
}

// Summarize returns the maxSentences highest scoring sentences of texts, in
// their original order.
func (s *FrequencySummarizer) Summarize(texts []string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sentences []string
	for _, t := range texts {
		found := sentenceRe.FindAllString(t, -1)
		if len(found) == 0 && strings.TrimSpace(t) != "" {
			found = []string{t}
		}
		sentences = append(sentences, found...)
	}
	if len(sentences) == 0 {
		return ""
	}
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " ")
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, ok := s.stopwords[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
