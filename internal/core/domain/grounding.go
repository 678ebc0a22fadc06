package domain

// GroundingVerdict is the outcome of checking a generated answer against the
// retrieved context. It is a heuristic signal, not a proof: false positives
// and negatives are expected, and the contract is "fewer confidently wrong
// answers", not "no hallucination".
type GroundingVerdict struct {
	IsValid     bool     `json:"is_valid"`
	Confidence  float64  `json:"confidence_score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}
