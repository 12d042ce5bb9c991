package ranker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"convoqa/internal/domain"
	"convoqa/internal/ranker"
)

func kbOf(contexts ...string) *domain.KnowledgeBase {
	kb := &domain.KnowledgeBase{Columns: []string{"text"}}
	for i, c := range contexts {
		kb.Rows = append(kb.Rows, domain.Row{
			Index:   i,
			Fields:  []domain.Field{{Name: "text", Value: c}},
			Context: c,
		})
	}
	return kb
}

func TestRank_Deadline(t *testing.T) {
	kb := kbOf("What is the deadline? March 1")
	r := ranker.New()

	m, ok := r.Rank("When is the deadline?", kb)
	gt.True(t, ok)
	gt.Equal(t, m.Row.Index, 0)
	gt.Number(t, m.Score).Greater(0)

	m, ok = r.Rank("What is the weather?", kb)
	gt.False(t, ok)
	gt.True(t, m == nil)
}

func TestRank_EmptyKnowledgeBase(t *testing.T) {
	r := ranker.New()
	for _, q := range []string{"", "deadline", "anything at all"} {
		m, ok := r.Rank(q, kbOf())
		gt.False(t, ok)
		gt.True(t, m == nil)

		m, ok = r.Rank(q, nil)
		gt.False(t, ok)
		gt.True(t, m == nil)
	}
}

func TestRank_EmptyQuery(t *testing.T) {
	_, ok := ranker.New().Rank("", kbOf("tuition fees", "library hours"))
	gt.False(t, ok)
}

func TestRank_SelfMatch(t *testing.T) {
	kb := kbOf(
		"Tuition fees for international students",
		"Library opening hours on weekdays",
		"Accommodation office halls of residence",
	)
	r := ranker.New()
	for i, row := range kb.Rows {
		m, ok := r.Rank(row.Context, kb)
		gt.True(t, ok)
		gt.Equal(t, m.Row.Index, i)

		scores := r.Scores(row.Context, kb)
		for _, s := range scores {
			gt.True(t, s <= m.Score)
		}
	}
}

func TestRank_TieGoesToFirstRow(t *testing.T) {
	kb := kbOf("library hours", "campus map", "library hours")
	m, ok := ranker.New().Rank("library", kb)
	gt.True(t, ok)
	gt.Equal(t, m.Row.Index, 0)
}

func TestRank_TieStableForLongContexts(t *testing.T) {
	words := []string{
		"tuition", "fees", "library", "campus", "scholarship", "deadline",
		"accommodation", "portal", "transcript", "semester", "module", "lecture",
		"seminar", "exam", "graduation", "enrolment", "visa", "placement",
		"timetable", "dissertation",
	}
	var parts []string
	for rep := 0; rep < 6; rep++ {
		for i, w := range words {
			parts = append(parts, fmt.Sprintf("%s%d", w, (i*rep)%7))
		}
	}
	long := strings.Join(parts, " ")
	kb := kbOf("unrelated campus map", long, "another unrelated row", long)
	query := "tuition0 library0 scholarship0 deadline0"

	r := ranker.New()
	for i := 0; i < 200; i++ {
		scores := r.Scores(query, kb)
		gt.Equal(t, scores[1], scores[3])

		m, ok := r.Rank(query, kb)
		gt.True(t, ok)
		gt.Equal(t, m.Row.Index, 1)
	}
}

func TestScores_Range(t *testing.T) {
	kb := kbOf("fees fees fees", "library", "")
	scores := ranker.New().Scores("fees library", kb)
	gt.A(t, scores).Length(3)
	for _, s := range scores {
		gt.True(t, s >= 0 && s <= 1)
	}
	gt.Equal(t, scores[2], 0.0)
}
