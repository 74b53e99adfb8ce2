package rules

// Config holds every tunable of the miner and applier.
type Config struct {
	MinConfidence     float64 `yaml:"min_confidence"`
	MinOccurrences    int     `yaml:"min_occurrences"`
	LearningThreshold int     `yaml:"learning_threshold"`
	MaxConfidence     float64 `yaml:"max_confidence"`
	RecencyDays       int     `yaml:"recency_days"`
	RecencyWeight     float64 `yaml:"recency_weight"`
	FrequencyStep     float64 `yaml:"frequency_step"`
	FrequencyCap      float64 `yaml:"frequency_cap"`
	AmountBucket      float64 `yaml:"amount_bucket"`
	AmountSpread      float64 `yaml:"amount_spread"` // fraction of the bucket value, 0.1 = ±10%
	MinKeywordLength  int     `yaml:"min_keyword_length"`
	ApplyAtPreview    bool    `yaml:"apply_at_preview"`
}

// DefaultConfig returns the stock heuristics.
func DefaultConfig() Config {
	return Config{
		MinConfidence:     0.6,
		MinOccurrences:    2,
		LearningThreshold: 3,
		MaxConfidence:     0.95,
		RecencyDays:       30,
		RecencyWeight:     0.2,
		FrequencyStep:     0.1,
		FrequencyCap:      0.2,
		AmountBucket:      10,
		AmountSpread:      0.1,
		MinKeywordLength:  3,
		ApplyAtPreview:    true,
	}
}
