package domain

import (
	"context"
	"time"
)

// NoInformationMessage is returned when neither the canned responses nor the
// knowledge base produce an answer.
const NoInformationMessage = "Sorry, no relevant information found in our database for your question."

// Field is a single named cell of a knowledge base record.
type Field struct {
	Name  string
	Value string
}

// Row is one record of the knowledge base. Fields keep the column order of
// the source file and Context is the space-joined text of every non-empty value.
type Row struct {
	Index   int
	Fields  []Field
	Context string
}

// Get returns the value of the named column.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// KnowledgeBase is the read-only table of rows loaded from the dataset.
type KnowledgeBase struct {
	Source  string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows; a nil knowledge base has none.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.Rows)
}

// Contexts returns the context text of every row in table order.
func (kb *KnowledgeBase) Contexts() []string {
	if kb == nil {
		return nil
	}
	out := make([]string, len(kb.Rows))
	for i, r := range kb.Rows {
		out[i] = r.Context
	}
	return out
}

// Match is the best scoring row for a query.
type Match struct {
	Row   Row
	Score float64
}

// InteractionEntry is one line of the interaction log.
type InteractionEntry struct {
	Timestamp time.Time
	Question  string
	Answer    string
}

// Summary is a short encyclopedia extract.
type Summary struct {
	Title   string
	Extract string
	URL     string
}

// AnswerKind tells where an answer came from.
type AnswerKind string

const (
	AnswerCanned AnswerKind = "canned"
	AnswerMatch  AnswerKind = "match"
	AnswerNone   AnswerKind = "none"
)

// Answer is what the presentation layer renders for a question.
type Answer struct {
	Question string
	Kind     AnswerKind
	Text     string
	Match    *Match
	Summary  *Summary
}

// Loader produces the knowledge base.
type Loader interface {
	Load() (*KnowledgeBase, error)
}

// Classifier matches small talk and returns a canned response.
type Classifier interface {
	Classify(query string) (string, bool)
}

// Ranker returns the knowledge base row most similar to the query.
type Ranker interface {
	Rank(query string, kb *KnowledgeBase) (*Match, bool)
}

// InteractionLogger persists question/answer pairs.
type InteractionLogger interface {
	Log(question, answer string) error
}

// Encyclopedia looks up a short external summary. A nil summary means nothing
// usable was found.
type Encyclopedia interface {
	Lookup(ctx context.Context, query string) (*Summary, error)
}

// Assistant defines the operations exposed by the application core.
type Assistant interface {
	Ask(ctx context.Context, question string) (*Answer, error)
	KnowledgeBase() (*KnowledgeBase, error)
}
