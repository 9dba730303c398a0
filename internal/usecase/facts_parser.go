package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nutrilog/backend/internal/domain"
)

// parseFacts extracts nutrition facts from the estimator's raw text
// payload. The payload must contain a JSON object; field names are
// matched case-insensitively and either "carbs" or "carbohydrates" is
// accepted for carbohydrate grams. A missing or non-numeric field is
// coerced to zero and reported as an anomaly for the caller to log
// rather than failing the whole response.
func parseFacts(payload string) (domain.NutritionFacts, []string, error) {
	object, err := extractJSONObject(payload)
	if err != nil {
		return domain.NutritionFacts{}, nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return domain.NutritionFacts{}, nil, fmt.Errorf("decode estimator payload: %w", err)
	}

	var facts domain.NutritionFacts
	var anomalies []string

	facts.Calories = lookupNumber(raw, &anomalies, "calories")
	facts.Fat = lookupNumber(raw, &anomalies, "fat")
	facts.Carbs = lookupNumber(raw, &anomalies, "carbs", "carbohydrates")
	facts.Protein = lookupNumber(raw, &anomalies, "protein")

	return facts, anomalies, nil
}

// extractJSONObject isolates the outermost {...} span of the payload.
// Models often wrap the object in prose or markdown fences despite the
// JSON-only instruction.
func extractJSONObject(payload string) (string, error) {
	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in estimator payload")
	}
	return payload[start : end+1], nil
}

// lookupNumber finds the first of names in raw, matching keys
// case-insensitively, and coerces the value to a float64. Absent or
// uncoercible values yield zero and an anomaly entry under the primary
// field name.
func lookupNumber(raw map[string]interface{}, anomalies *[]string, names ...string) float64 {
	for key, value := range raw {
		for _, name := range names {
			if !strings.EqualFold(key, name) {
				continue
			}
			if n, ok := coerceNumber(value); ok {
				return n
			}
			*anomalies = append(*anomalies, names[0])
			return 0
		}
	}
	*anomalies = append(*anomalies, names[0])
	return 0
}

func coerceNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
