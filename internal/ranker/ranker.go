package ranker

import (
	"convoqa/internal/domain"
	"convoqa/internal/embedding/tfidf"
)

// TFIDFRanker scores a query against every row of the knowledge base using
// TF-IDF vectors and cosine similarity. The vector space is rebuilt on every
// call; there is no persisted index.
type TFIDFRanker struct {
	opts []tfidf.Option
}

func New(opts ...tfidf.Option) *TFIDFRanker {
	return &TFIDFRanker{opts: opts}
}

// Scores returns the cosine similarity of query with each row, in row order.
func (r *TFIDFRanker) Scores(query string, kb *domain.KnowledgeBase) []float64 {
	if kb.Len() == 0 {
		return nil
	}
	corpus := make([]string, 0, kb.Len()+1)
	corpus = append(corpus, query)
	corpus = append(corpus, kb.Contexts()...)

	vecs := tfidf.NewVectorizer(r.opts...).FitTransform(corpus)
	q := vecs[0]
	scores := make([]float64, kb.Len())
	for i, doc := range vecs[1:] {
		// vectors are L2-normalized, so the dot product is the cosine
		scores[i] = clamp(q.Dot(doc))
	}
	return scores
}

// Rank returns the best scoring row. Ties go to the earliest row and a best
// score of zero means no match.
func (r *TFIDFRanker) Rank(query string, kb *domain.KnowledgeBase) (*domain.Match, bool) {
	scores := r.Scores(query, kb)
	if len(scores) == 0 {
		return nil, false
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	if scores[best] <= 0 {
		return nil, false
	}
	return &domain.Match{Row: kb.Rows[best], Score: scores[best]}, true
}

func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
