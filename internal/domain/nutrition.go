package domain

import "math"

// Validation ranges for nutrition values. Calories are kcal, everything
// else is grams per serving.
const (
	MaxCalories = 10000.0
	MaxGrams    = 1000.0
)

// Provenance indicates where an analysis result came from.
type Provenance string

const (
	ProvenanceAIGenerated Provenance = "AI_GENERATED"
	ProvenanceCached      Provenance = "CACHED"
)

// Confidence tags attached to analysis results. Cache hits are "high"
// because the value already passed validation once.
const (
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// NutritionFacts holds the four macronutrient values for a food description.
// Pure value type; compared and cached by value.
type NutritionFacts struct {
	Calories float64 `json:"calories"`
	Fat      float64 `json:"fat"`     // grams
	Carbs    float64 `json:"carbs"`   // grams
	Protein  float64 `json:"protein"` // grams
}

// Valid reports whether every field is a finite number inside its
// accepted range.
func (f NutritionFacts) Valid() bool {
	for _, v := range []float64{f.Calories, f.Fat, f.Carbs, f.Protein} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	if f.Calories > MaxCalories {
		return false
	}
	return f.Fat <= MaxGrams && f.Carbs <= MaxGrams && f.Protein <= MaxGrams
}

// AnalysisResult is the outcome of analyzing a food description.
type AnalysisResult struct {
	NutritionFacts
	Provenance Provenance `json:"provenance"`
	Confidence string     `json:"confidence"`
}

// AnalyzeRequest is the caller-facing request body for nutrition analysis.
type AnalyzeRequest struct {
	Description string `json:"description" binding:"required"`
}

// CacheStats is a point-in-time snapshot of the facts cache.
// HitRate is the mean access count over live entries, not a hit/miss
// ratio; misses are not tracked.
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	HitRate float64 `json:"hitRate"`
}
