package domain

import "context"

// FactsCache defines the interface for the in-process nutrition memo store.
// Absent and expired keys are ordinary misses, not errors.
type FactsCache interface {
	Get(key string) (NutritionFacts, bool)
	Set(key string, facts NutritionFacts)
	Clear()
	Stats() CacheStats
}

// NutritionEstimator defines the interface for the external AI completion
// service. Estimate returns the raw text payload for a food description;
// the caller is responsible for parsing and validating it.
type NutritionEstimator interface {
	Estimate(ctx context.Context, description string) (string, error)
}
