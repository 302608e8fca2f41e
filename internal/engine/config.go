package engine

// Config holds the engine's tuning parameters. The engine copies it at
// construction and never changes it afterwards; zero or negative fields
// fall back to the defaults below.
type Config struct {
	PromotionThreshold int     // promote to long-term once AccessCount exceeds this
	RetrievalBoost     float64 // DecayFactor multiplier for records a retrieval returns
	AgingFactor        float64 // DecayFactor multiplier for records a retrieval passes over
	ActivationSteps    int     // spreading activation rounds per retrieval
	ActivationDecay    float64 // per-hop attenuation of spread activation
	SimilarityWeight   float64 // weight of the similarity term in the score
	ActivationWeight   float64 // weight of the concept activation term in the score
	EmbeddingDims      int     // expected embedding dimension; 0 adopts the first vector seen
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		PromotionThreshold: 10,
		RetrievalBoost:     1.1,
		AgingFactor:        0.9,
		ActivationSteps:    2,
		ActivationDecay:    0.5,
		SimilarityWeight:   1.0,
		ActivationWeight:   1.0,
	}
}

// withDefaults fills unset fields. Both decay multipliers are forced
// positive here, which is what keeps DecayFactor > 0 for the life of
// every record.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PromotionThreshold <= 0 {
		c.PromotionThreshold = def.PromotionThreshold
	}
	if c.RetrievalBoost <= 0 {
		c.RetrievalBoost = def.RetrievalBoost
	}
	if c.AgingFactor <= 0 {
		c.AgingFactor = def.AgingFactor
	}
	if c.ActivationSteps <= 0 {
		c.ActivationSteps = def.ActivationSteps
	}
	if c.ActivationDecay <= 0 {
		c.ActivationDecay = def.ActivationDecay
	}
	if c.SimilarityWeight <= 0 {
		c.SimilarityWeight = def.SimilarityWeight
	}
	if c.ActivationWeight <= 0 {
		c.ActivationWeight = def.ActivationWeight
	}
	if c.EmbeddingDims < 0 {
		c.EmbeddingDims = 0
	}
	return c
}
