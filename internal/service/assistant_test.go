package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/m-mizutani/gt"

	"convoqa/internal/dataset"
	"convoqa/internal/domain"
	"convoqa/internal/intent"
	"convoqa/internal/interaction"
	"convoqa/internal/ranker"
	"convoqa/internal/service"
	"convoqa/internal/wiki"
)

type staticLoader struct {
	kb  *domain.KnowledgeBase
	err error
}

func (l staticLoader) Load() (*domain.KnowledgeBase, error) { return l.kb, l.err }

type memoryLog struct {
	entries [][2]string
	err     error
}

func (m *memoryLog) Log(q, a string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, [2]string{q, a})
	return nil
}

type fakeEncyclopedia struct {
	summary *domain.Summary
	err     error
	calls   int
}

func (f *fakeEncyclopedia) Lookup(ctx context.Context, q string) (*domain.Summary, error) {
	f.calls++
	return f.summary, f.err
}

func deadlineKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Columns: []string{"question", "answer"},
		Rows: []domain.Row{{
			Index: 0,
			Fields: []domain.Field{
				{Name: "question", Value: "What is the deadline?"},
				{Name: "answer", Value: "March 1"},
			},
			Context: "What is the deadline? March 1",
		}},
	}
}

func newAssistant(log domain.InteractionLogger, opts ...service.Option) *service.AssistantImpl {
	return service.NewAssistant(
		staticLoader{kb: deadlineKB()},
		intent.New(intent.WithSeed(1)),
		ranker.New(),
		log,
		opts...,
	)
}

func TestAsk_Canned(t *testing.T) {
	log := &memoryLog{}
	enc := &fakeEncyclopedia{}
	a := newAssistant(log, service.WithEncyclopedia(enc, service.FallbackAlways))

	ans, err := a.Ask(context.Background(), "hello there")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerCanned)
	gt.True(t, slices.Contains(intent.Responses(intent.Greetings), ans.Text))
	gt.A(t, log.entries).Length(1)
	gt.Equal(t, log.entries[0][1], ans.Text)
	gt.Equal(t, enc.calls, 0)
}

func TestAsk_Match(t *testing.T) {
	log := &memoryLog{}
	a := newAssistant(log)

	ans, err := a.Ask(context.Background(), "When is the deadline?")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerMatch)
	gt.Equal(t, ans.Text, "What is the deadline? March 1")
	gt.NotNil(t, ans.Match)
	gt.Number(t, ans.Match.Score).Greater(0)
	gt.True(t, ans.Summary == nil)
	gt.Equal(t, log.entries[0], [2]string{"When is the deadline?", "What is the deadline? March 1"})
}

func TestAsk_NoMatchFallbackAbsent(t *testing.T) {
	log := &memoryLog{}
	enc := &fakeEncyclopedia{err: wiki.ErrNotFound}
	a := newAssistant(log, service.WithEncyclopedia(enc, service.FallbackAlways))

	ans, err := a.Ask(context.Background(), "What is the weather?")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerNone)
	gt.Equal(t, ans.Text, domain.NoInformationMessage)
	gt.True(t, ans.Match == nil)
	gt.True(t, ans.Summary == nil)
	gt.Equal(t, enc.calls, 1)
	gt.Equal(t, log.entries[0][1], domain.NoInformationMessage)
}

func TestAsk_FallbackPolicies(t *testing.T) {
	summary := &domain.Summary{Title: "Deadline", Extract: "A deadline is a time limit."}
	testCases := []struct {
		policy    service.FallbackPolicy
		question  string
		wantCalls int
	}{
		{service.FallbackAlways, "When is the deadline?", 1},
		{service.FallbackAlways, "What is the weather?", 1},
		{service.FallbackOnMiss, "When is the deadline?", 0},
		{service.FallbackOnMiss, "What is the weather?", 1},
		{service.FallbackOff, "What is the weather?", 0},
	}
	for _, tc := range testCases {
		t.Run(string(tc.policy)+"/"+tc.question, func(t *testing.T) {
			enc := &fakeEncyclopedia{summary: summary}
			a := newAssistant(&memoryLog{}, service.WithEncyclopedia(enc, tc.policy))

			ans, err := a.Ask(context.Background(), tc.question)
			gt.NoError(t, err)
			gt.Equal(t, enc.calls, tc.wantCalls)
			gt.Equal(t, ans.Summary != nil, tc.wantCalls == 1)
		})
	}
}

func TestAsk_TransportFailureIsAbsorbed(t *testing.T) {
	enc := &fakeEncyclopedia{err: errors.New("connection refused")}
	a := newAssistant(&memoryLog{}, service.WithEncyclopedia(enc, service.FallbackAlways))

	ans, err := a.Ask(context.Background(), "When is the deadline?")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerMatch)
	gt.True(t, ans.Summary == nil)
}

func TestAsk_LogFailureIsNotFatal(t *testing.T) {
	a := newAssistant(&memoryLog{err: errors.New("disk full")})

	ans, err := a.Ask(context.Background(), "When is the deadline?")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerMatch)
}

func TestAsk_LoadError(t *testing.T) {
	loader := dataset.NewCache(dataset.NewFileLoader(filepath.Join(t.TempDir(), "missing.csv")))
	a := service.NewAssistant(loader, intent.New(), ranker.New(), &memoryLog{})

	ans, err := a.Ask(context.Background(), "When is the deadline?")
	gt.Error(t, err)
	gt.True(t, ans == nil)
	gt.True(t, dataset.IsLoadError(err))

	// small talk does not need the knowledge base
	ans, err = a.Ask(context.Background(), "thanks")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerCanned)
}

func TestAsk_EndToEndWithFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "user_interactions.csv")
	cache := dataset.NewCache(dataset.NewFileLoader(filepath.Join("..", "..", "testdata", "university_qa.csv")))
	a := service.NewAssistant(cache, intent.New(intent.WithSeed(3)), ranker.New(), interaction.NewCSVLogger(logPath))

	ans, err := a.Ask(context.Background(), "library opening hours")
	gt.NoError(t, err)
	gt.Equal(t, ans.Kind, domain.AnswerMatch)
	gt.S(t, ans.Text).Contains("library is open")

	_, err = a.Ask(context.Background(), "quantum chromodynamics")
	gt.NoError(t, err)
	gt.Equal(t, cache.Loads(), 1)

	entries, err := interaction.ReadAll(logPath)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[1].Answer, domain.NoInformationMessage)
}

func TestParseFallbackPolicy(t *testing.T) {
	p, err := service.ParseFallbackPolicy("on-miss")
	gt.NoError(t, err)
	gt.Equal(t, p, service.FallbackOnMiss)

	_, err = service.ParseFallbackPolicy("maybe")
	gt.Error(t, err)
}
