package intent

import (
	"math/rand"
	"strings"
	"time"
)

// Category names a group of small-talk phrases.
type Category string

const (
	Greetings Category = "greetings"
	Farewells Category = "farewells"
	Thanks    Category = "thanks"
)

// Source picks an index in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

type rule struct {
	category  Category
	phrases   []string
	responses []string
}

// Checked in order; the first category with a matching phrase wins.
var rules = []rule{
	{
		category: Greetings,
		phrases:  []string{"hello", "hi", "hey", "greetings"},
		responses: []string{
			"Hello! How can I assist you today?",
			"Hi there! What would you like to know?",
			"Greetings! How may I help you?",
		},
	},
	{
		category: Farewells,
		phrases:  []string{"bye", "goodbye", "see you", "farewell"},
		responses: []string{
			"Goodbye! Have a great day!",
			"Farewell! Feel free to come back if you have more questions.",
			"See you later! Take care!",
		},
	},
	{
		category:  Thanks,
		phrases:   []string{"thank you", "thanks", "appreciate it"},
		responses: []string{"You're welcome!", "Happy to help!", "My pleasure!"},
	},
}

// Classifier answers small talk with canned responses.
type Classifier struct {
	src Source
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSource sets the random source used to pick a response.
func WithSource(src Source) Option {
	return func(c *Classifier) { c.src = src }
}

// WithSeed uses a deterministic source seeded with seed.
func WithSeed(seed int64) Option {
	return func(c *Classifier) { c.src = rand.New(rand.NewSource(seed)) }
}

func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Match returns the category of the first rule whose phrase occurs in query.
// Matching is a case-insensitive substring test, so "this" matches "hi".
func (c *Classifier) Match(query string) (Category, bool) {
	r, ok := match(query)
	if !ok {
		return "", false
	}
	return r.category, true
}

// Classify returns a canned response for small talk, or false.
func (c *Classifier) Classify(query string) (string, bool) {
	r, ok := match(query)
	if !ok {
		return "", false
	}
	return r.responses[c.src.Intn(len(r.responses))], true
}

// Responses lists the canned responses of a category.
func Responses(cat Category) []string {
	for _, r := range rules {
		if r.category == cat {
			return append([]string(nil), r.responses...)
		}
	}
	return nil
}

func match(query string) (rule, bool) {
	q := strings.ToLower(query)
	for _, r := range rules {
		for _, p := range r.phrases {
			if strings.Contains(q, p) {
				return r, true
			}
		}
	}
	return rule{}, false
}
