package executor

// ResultMetadata describes one completion call.
type ResultMetadata struct {
	Model          string             `json:"model"`
	Temperature    float32            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens"`
	ActualTokens   int                `json:"actual_tokens"`
	ResponseTimeMs int64              `json:"response_time_ms"`
	RequestID      string             `json:"request_id"`
	RateLimit      *RateLimitSnapshot `json:"rate_limit,omitempty"`
	// Error carries the provider error message on a degraded result.
	Error string `json:"error,omitempty"`
}

// Result is the sole output of one execution. It is always well-formed:
// provider API errors produce a degraded Result instead of an error.
type Result struct {
	Content              string         `json:"content"`
	QualityScore         float64        `json:"quality_score"`
	TokensUsed           int            `json:"tokens_used"`
	ProcessingTimeMs     int64          `json:"processing_time_ms"`
	KnowledgeSourcesUsed []string       `json:"knowledge_sources_used"`
	QualityGatesPassed   []string       `json:"quality_gates_passed"`
	Metadata             ResultMetadata `json:"metadata"`
}

// Degraded reports whether this result stands in for a failed provider call.
func (r *Result) Degraded() bool {
	return r.Metadata.Error != ""
}
