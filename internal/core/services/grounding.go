package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/runtime"
)

// Weights of the grounding confidence components. They sum to 1.
const (
	weightSemantic = 0.3
	weightSupport  = 0.4
	weightCoverage = 0.3
)

// minQueryCoverage is the floor a response must clear regardless of its
// combined confidence score.
const minQueryCoverage = 0.1

// GroundingConfig tunes the verifier. Zero values take the defaults below.
type GroundingConfig struct {
	Threshold float64 // confidence cut for the chat pipeline (default 0.15)
	Logger    *slog.Logger
}

// GroundingVerifier scores how well a generated answer is anchored in the
// query and the retrieved sources. The score is a lexical/semantic
// heuristic, not a proof of factual correctness.
type GroundingVerifier struct {
	services  *runtime.Services
	threshold float64
	logger    *slog.Logger
}

// NewGroundingVerifier creates a new GroundingVerifier.
// The embedding service is accessed dynamically via runtime.Services; when it
// is absent the semantic component falls back to word overlap.
func NewGroundingVerifier(services *runtime.Services, cfg GroundingConfig) *GroundingVerifier {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.15
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GroundingVerifier{
		services:  services,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
	}
}

// Threshold returns the verifier's default confidence cut.
func (g *GroundingVerifier) Threshold() float64 {
	return g.threshold
}

// Verify checks a response against the verifier's default threshold.
func (g *GroundingVerifier) Verify(ctx context.Context, query, response string, sources []string) domain.GroundingVerdict {
	return g.VerifyWithThreshold(ctx, query, response, sources, g.threshold)
}

// VerifyWithThreshold scores the response and applies the given confidence
// cut. Confidence is 0.3*semantic similarity + 0.4*best source support +
// 0.3*query coverage; a response is valid only when confidence clears the
// threshold and coverage clears the floor.
func (g *GroundingVerifier) VerifyWithThreshold(ctx context.Context, query, response string, sources []string, threshold float64) domain.GroundingVerdict {
	verdict := domain.GroundingVerdict{}

	words := tokenize(response)
	g.collectStructuralIssues(&verdict, response, words)

	if len(words) == 0 {
		verdict.Suggestions = append(verdict.Suggestions, "generate a non-empty answer from the provided sources")
		return verdict
	}

	semantic := g.semanticSimilarity(ctx, query, response)
	support := maxSourceSupport(words, sources)
	coverage := queryCoverage(query, response, words)

	verdict.Confidence = weightSemantic*semantic + weightSupport*support + weightCoverage*coverage
	verdict.IsValid = verdict.Confidence > threshold && coverage > minQueryCoverage

	if !verdict.IsValid {
		if coverage <= minQueryCoverage {
			verdict.Issues = append(verdict.Issues, "response does not address the question")
			verdict.Suggestions = append(verdict.Suggestions, "restate key terms from the question in the answer")
		}
		if support == 0 && len(sources) > 0 {
			verdict.Issues = append(verdict.Issues, "response is not supported by any retrieved source")
			verdict.Suggestions = append(verdict.Suggestions, "ground the answer in the retrieved passages")
		}
	}

	return verdict
}

// collectStructuralIssues appends form problems with the response. These
// never affect the confidence score.
func (g *GroundingVerifier) collectStructuralIssues(verdict *domain.GroundingVerdict, response string, words []string) {
	if strings.TrimSpace(response) == "" {
		verdict.Issues = append(verdict.Issues, "response is empty")
		return
	}
	if len(words) < 5 {
		verdict.Issues = append(verdict.Issues, "response is too short to verify")
	}
	if word, ok := dominantWord(words); ok {
		verdict.Issues = append(verdict.Issues, "excessive repetition of \""+word+"\"")
	}
	if last := words[len(words)-1]; isDanglingConjunction(last) {
		verdict.Issues = append(verdict.Issues, "response ends mid-thought")
	}
}

// semanticSimilarity embeds query and response and maps cosine similarity
// from [-1,1] into [0,1]. Without a usable embedder it falls back to the
// Jaccard overlap of their word sets.
func (g *GroundingVerifier) semanticSimilarity(ctx context.Context, query, response string) float64 {
	embeddingService := g.services.EmbeddingService()
	if embeddingService != nil {
		vectors, err := embeddingService.Embed(ctx, []string{query, response})
		if err == nil && len(vectors) == 2 && vectors[0] != nil && vectors[1] != nil {
			return (cosine(vectors[0], vectors[1]) + 1) / 2
		}
		if err != nil {
			g.logger.Debug("embedding unavailable for grounding, using word overlap", "error", err)
		}
	}
	return jaccard(wordSet(tokenize(query)), wordSet(tokenize(response)))
}

// maxSourceSupport is the best fraction of response words found verbatim in
// any single source.
func maxSourceSupport(responseWords []string, sources []string) float64 {
	if len(responseWords) == 0 || len(sources) == 0 {
		return 0
	}
	best := 0.0
	for _, source := range sources {
		sourceSet := wordSet(tokenize(source))
		if len(sourceSet) == 0 {
			continue
		}
		matched := 0
		for _, w := range responseWords {
			if sourceSet[w] {
				matched++
			}
		}
		support := float64(matched) / float64(len(responseWords))
		if support > best {
			best = support
		}
	}
	return best
}

// queryCoverage is the fraction of distinct query words present as whole
// tokens in the response, with a 0.1 bonus per query word longer than three
// characters that appears anywhere in the response text, whole word or not.
// Capped at 1.
func queryCoverage(query, response string, responseWords []string) float64 {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return 0
	}
	responseSet := wordSet(responseWords)
	responseLower := strings.ToLower(response)

	distinct := make(map[string]bool, len(queryWords))
	matched := 0
	bonus := 0.0
	for _, w := range queryWords {
		if distinct[w] {
			continue
		}
		distinct[w] = true
		if responseSet[w] {
			matched++
		}
		if len(w) > 3 && strings.Contains(responseLower, w) {
			bonus += 0.1
		}
	}

	coverage := float64(matched)/float64(len(distinct)) + bonus
	if coverage > 1 {
		coverage = 1
	}
	return coverage
}

// dominantWord reports a word making up more than 30% of the tokens, for
// responses long enough for that to be suspicious.
func dominantWord(words []string) (string, bool) {
	if len(words) < 5 {
		return "", false
	}
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	for w, n := range counts {
		if float64(n) > 0.3*float64(len(words)) {
			return w, true
		}
	}
	return "", false
}

func isDanglingConjunction(word string) bool {
	switch word {
	case "however", "but", "because", "although":
		return true
	}
	return false
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
