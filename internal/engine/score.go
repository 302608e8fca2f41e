package engine

import "math"

// relevance computes the ranking score of a record for one retrieval:
//
//	score = simWeight * similarity * decayFactor * ln(1 + accessCount)
//	      + actWeight * sum(activation[c] for c in record.Concepts)
//
// CosineSimilarity returns 0 for empty or mismatched vectors, so a
// record without an embedding ranks purely on concept activation.
func relevance(cfg Config, r *InteractionRecord, query []float64, activation map[string]float64) (score, similarity, conceptScore float64) {
	similarity = CosineSimilarity(r.Embedding, query)
	reinforcement := math.Log(1 + float64(r.AccessCount))
	for _, c := range r.Concepts {
		conceptScore += activation[c]
	}
	score = cfg.SimilarityWeight*similarity*r.DecayFactor*reinforcement +
		cfg.ActivationWeight*conceptScore
	return score, similarity, conceptScore
}
