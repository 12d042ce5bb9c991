package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"convoqa/internal/domain"
	"convoqa/internal/wiki"
)

// FallbackPolicy decides when the encyclopedia is consulted.
type FallbackPolicy string

const (
	// FallbackAlways looks up every non-canned question and shows the
	// summary whenever one is found.
	FallbackAlways FallbackPolicy = "always"
	// FallbackOnMiss looks up only questions the knowledge base could not answer.
	FallbackOnMiss FallbackPolicy = "on-miss"
	FallbackOff    FallbackPolicy = "off"
)

// ParseFallbackPolicy validates a policy name.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(s); p {
	case FallbackAlways, FallbackOnMiss, FallbackOff:
		return p, nil
	}
	return "", goerr.New("unknown fallback policy", goerr.V("policy", s))
}

// AssistantImpl answers questions from canned responses, the knowledge base
// and optionally an encyclopedia, recording every answer.
type AssistantImpl struct {
	kb           domain.Loader
	classifier   domain.Classifier
	ranker       domain.Ranker
	interactions domain.InteractionLogger
	encyclopedia domain.Encyclopedia
	policy       FallbackPolicy
	logger       *zap.Logger
}

// Option configures an AssistantImpl.
type Option func(*AssistantImpl)

// WithLogger sets the application logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *AssistantImpl) { a.logger = l }
}

// WithEncyclopedia enables the external lookup under the given policy.
func WithEncyclopedia(e domain.Encyclopedia, policy FallbackPolicy) Option {
	return func(a *AssistantImpl) {
		a.encyclopedia = e
		a.policy = policy
	}
}

// NewAssistant wires the answering pipeline. kb should be a caching loader;
// it is asked for the knowledge base on every question.
func NewAssistant(kb domain.Loader, classifier domain.Classifier, ranker domain.Ranker, interactions domain.InteractionLogger, opts ...Option) *AssistantImpl {
	a := &AssistantImpl{
		kb:           kb,
		classifier:   classifier,
		ranker:       ranker,
		interactions: interactions,
		policy:       FallbackOff,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// KnowledgeBase returns the loaded knowledge base.
func (a *AssistantImpl) KnowledgeBase() (*domain.KnowledgeBase, error) {
	return a.kb.Load()
}

// Ask answers one question. The only error returned is a knowledge base
// load failure; logging and encyclopedia failures are reported to the
// application log and otherwise ignored.
func (a *AssistantImpl) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	log := a.logger.With(zap.String("request_id", uuid.NewString()))
	started := time.Now()

	if resp, ok := a.classifier.Classify(question); ok {
		a.record(log, question, resp)
		log.Info("canned response", zap.String("question", question))
		return &domain.Answer{Question: question, Kind: domain.AnswerCanned, Text: resp}, nil
	}

	kb, err := a.kb.Load()
	if err != nil {
		log.Error("knowledge base unavailable", zap.Error(err))
		return nil, err
	}

	ans := &domain.Answer{Question: question, Kind: domain.AnswerNone, Text: domain.NoInformationMessage}
	match, found := a.ranker.Rank(question, kb)
	if found {
		ans.Kind = domain.AnswerMatch
		ans.Text = match.Row.Context
		ans.Match = match
	}
	a.record(log, question, ans.Text)

	if a.shouldLookup(found) {
		ans.Summary = a.lookup(ctx, log, question)
	}

	log.Info("question answered",
		zap.String("question", question),
		zap.String("kind", string(ans.Kind)),
		zap.Float64("score", score(match)),
		zap.Bool("summary", ans.Summary != nil),
		zap.Duration("elapsed", time.Since(started)),
	)
	return ans, nil
}

func (a *AssistantImpl) shouldLookup(found bool) bool {
	if a.encyclopedia == nil {
		return false
	}
	switch a.policy {
	case FallbackAlways:
		return true
	case FallbackOnMiss:
		return !found
	}
	return false
}

func (a *AssistantImpl) lookup(ctx context.Context, log *zap.Logger, question string) *domain.Summary {
	summary, err := a.encyclopedia.Lookup(ctx, question)
	if err != nil {
		if wiki.IsAbsent(err) {
			log.Debug("no encyclopedia summary", zap.Error(err))
		} else {
			log.Warn("encyclopedia lookup failed", zap.Error(err))
		}
		return nil
	}
	return summary
}

func (a *AssistantImpl) record(log *zap.Logger, question, answer string) {
	if err := a.interactions.Log(question, answer); err != nil {
		log.Error("failed to record interaction", zap.Error(err))
	}
}

func score(m *domain.Match) float64 {
	if m == nil {
		return 0
	}
	return m.Score
}
