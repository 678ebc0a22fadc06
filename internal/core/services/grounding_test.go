package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/lectern-ai/lectern-core/internal/core/ports/driven/mocks"
)

func TestGroundingVerifier_RejectsIDontKnow(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(mocks.NewMockEmbeddingService()), GroundingConfig{})

	verdict := verifier.VerifyWithThreshold(
		context.Background(),
		"What is photosynthesis?",
		"I don't know.",
		[]string{"Photosynthesis is the process by which plants convert sunlight into chemical energy."},
		0.30,
	)

	if verdict.IsValid {
		t.Errorf("expected verdict invalid, got confidence %f", verdict.Confidence)
	}
	if len(verdict.Issues) == 0 {
		t.Error("expected issues for a non-answer")
	}
	foundShort := false
	for _, issue := range verdict.Issues {
		if strings.Contains(issue, "too short") {
			foundShort = true
		}
	}
	if !foundShort {
		t.Errorf("expected a too-short issue, got %v", verdict.Issues)
	}
}

func TestGroundingVerifier_AcceptsGroundedAnswer(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(mocks.NewMockEmbeddingService()), GroundingConfig{})

	source := "Photosynthesis is the process by which plants convert sunlight into chemical energy."
	verdict := verifier.Verify(
		context.Background(),
		"What is photosynthesis?",
		"Photosynthesis is the process by which plants convert sunlight into chemical energy.",
		[]string{source},
	)

	if !verdict.IsValid {
		t.Errorf("expected verdict valid, got confidence %f issues %v", verdict.Confidence, verdict.Issues)
	}
	if verdict.Confidence <= 0.15 {
		t.Errorf("expected confidence above the pipeline threshold, got %f", verdict.Confidence)
	}
}

func TestGroundingVerifier_MoreSupportMeansMoreConfidence(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(mocks.NewMockEmbeddingService()), GroundingConfig{})
	ctx := context.Background()

	query := "What is photosynthesis?"
	response := "Photosynthesis lets plants convert sunlight into chemical energy."

	unsupported := verifier.Verify(ctx, query, response, []string{
		"The French Revolution began in 1789.",
	})
	supported := verifier.Verify(ctx, query, response, []string{
		"Photosynthesis lets plants convert sunlight into chemical energy inside chloroplasts.",
	})

	if supported.Confidence <= unsupported.Confidence {
		t.Errorf("expected supporting sources to raise confidence: %f vs %f",
			supported.Confidence, unsupported.Confidence)
	}
}

func TestGroundingVerifier_CoverageFloor(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(nil), GroundingConfig{})

	// Perfectly supported by the source, but it never addresses the question.
	source := "Bananas are a yellow tropical fruit rich in potassium."
	verdict := verifier.Verify(
		context.Background(),
		"What is photosynthesis?",
		"Bananas are a yellow tropical fruit rich in potassium.",
		[]string{source},
	)

	if verdict.IsValid {
		t.Errorf("expected verdict invalid despite source support, confidence %f", verdict.Confidence)
	}
	foundOffTopic := false
	for _, issue := range verdict.Issues {
		if strings.Contains(issue, "does not address") {
			foundOffTopic = true
		}
	}
	if !foundOffTopic {
		t.Errorf("expected an off-topic issue, got %v", verdict.Issues)
	}
}

// The coverage bonus keys on the query word appearing anywhere in the
// response text, even embedded inside a longer word.
func TestQueryCoverage_EmbeddedWordsEarnBonus(t *testing.T) {
	response := "Photosynthesis converts light."
	coverage := queryCoverage("explain photo synthesis", response, tokenize(response))

	// No whole-token matches, but "photo" and "synthesis" both occur inside
	// "photosynthesis" and each earns 0.1.
	if math.Abs(coverage-0.2) > 1e-9 {
		t.Errorf("expected coverage 0.2 from two embedded-word bonuses, got %f", coverage)
	}

	whole := queryCoverage("explain photosynthesis", response, tokenize(response))
	if math.Abs(whole-0.6) > 1e-9 {
		t.Errorf("expected coverage 0.6 (1 of 2 words matched plus bonus), got %f", whole)
	}
}

func TestGroundingVerifier_EmptyResponse(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(nil), GroundingConfig{})

	verdict := verifier.Verify(context.Background(), "What is photosynthesis?", "   ", nil)

	if verdict.IsValid {
		t.Error("expected empty response to be invalid")
	}
	if verdict.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", verdict.Confidence)
	}
	if len(verdict.Issues) == 0 || !strings.Contains(verdict.Issues[0], "empty") {
		t.Errorf("expected an empty-response issue, got %v", verdict.Issues)
	}
}

func TestGroundingVerifier_StructuralIssues(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(nil), GroundingConfig{})
	ctx := context.Background()

	t.Run("dangling conjunction", func(t *testing.T) {
		verdict := verifier.Verify(ctx, "Why do leaves change color?",
			"Leaves change color in autumn because", nil)
		found := false
		for _, issue := range verdict.Issues {
			if strings.Contains(issue, "mid-thought") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a mid-thought issue, got %v", verdict.Issues)
		}
	})

	t.Run("excessive repetition", func(t *testing.T) {
		verdict := verifier.Verify(ctx, "Why do leaves change color?",
			"leaves leaves leaves leaves change color in autumn", nil)
		found := false
		for _, issue := range verdict.Issues {
			if strings.Contains(issue, "repetition") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a repetition issue, got %v", verdict.Issues)
		}
	})
}

func TestGroundingVerifier_WordOverlapFallbackWithoutEmbedder(t *testing.T) {
	// No embedding service at all: the semantic component must fall back to
	// word overlap instead of failing or returning zero for everything.
	verifier := NewGroundingVerifier(createTestServices(nil), GroundingConfig{})

	verdict := verifier.Verify(
		context.Background(),
		"What is photosynthesis?",
		"Photosynthesis is the process by which plants convert sunlight into chemical energy.",
		[]string{"Photosynthesis is the process by which plants convert sunlight into chemical energy."},
	)

	if !verdict.IsValid {
		t.Errorf("expected verdict valid via the lexical fallback, confidence %f issues %v",
			verdict.Confidence, verdict.Issues)
	}
}

func TestGroundingVerifier_ThresholdSeparation(t *testing.T) {
	verifier := NewGroundingVerifier(createTestServices(nil), GroundingConfig{Threshold: 0.15})
	if verifier.Threshold() != 0.15 {
		t.Fatalf("unexpected default threshold %f", verifier.Threshold())
	}

	ctx := context.Background()
	query := "Explain gravity"
	// Middling answer: mentions the topic, weakly supported.
	response := "Gravity pulls objects toward one another across space and time continually."
	sources := []string{"Mass tells spacetime how to curve."}

	lenient := verifier.VerifyWithThreshold(ctx, query, response, sources, 0.05)
	strict := verifier.VerifyWithThreshold(ctx, query, response, sources, 0.99)

	if !lenient.IsValid {
		t.Errorf("expected validity at a lenient threshold, confidence %f", lenient.Confidence)
	}
	if strict.IsValid {
		t.Error("expected invalidity at a near-impossible threshold")
	}
	if lenient.Confidence != strict.Confidence {
		t.Error("threshold must not change the confidence score itself")
	}
}
