package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nutrilog/backend/internal/domain"
	"github.com/nutrilog/backend/internal/infrastructure/cache"
)

// mockEstimator is a mock implementation of domain.NutritionEstimator
type mockEstimator struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   int
	block   chan struct{} // non-nil makes Estimate wait until closed
}

func (m *mockEstimator) Estimate(ctx context.Context, description string) (string, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.err != nil {
		return "", m.err
	}
	return m.payload, nil
}

func (m *mockEstimator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

const bananaPayload = `{"calories": 105, "fat": 0.4, "carbs": 27, "protein": 1.3}`

var bananaFacts = domain.NutritionFacts{Calories: 105, Fat: 0.4, Carbs: 27, Protein: 1.3}

func newTestService(estimator domain.NutritionEstimator) *AnalysisService {
	return NewAnalysisService(cache.New(), estimator, nil, AnalysisServiceConfig{})
}

func TestAnalyze_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		description string
		wantMessage string
	}{
		{"empty description", "", "required"},
		{"whitespace description", "   ", "required"},
		{"too long description", strings.Repeat("a", 201), "too long"},
		{"html content", "<script>alert('x')</script>", "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimator := &mockEstimator{payload: bananaPayload}
			svc := newTestService(estimator)

			_, err := svc.Analyze(ctx, tt.description)

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want *domain.ValidationError", err)
			}
			if !strings.Contains(vErr.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want it to contain %q", vErr.Message, tt.wantMessage)
			}
			if estimator.callCount() != 0 {
				t.Errorf("estimator calls = %d, want 0 for rejected input", estimator.callCount())
			}
		})
	}
}

func TestAnalyze_CacheInteraction(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: bananaPayload}
	svc := newTestService(estimator)

	first, err := svc.Analyze(ctx, "banana")
	if err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}
	if first.Provenance != domain.ProvenanceAIGenerated {
		t.Errorf("first Provenance = %q, want %q", first.Provenance, domain.ProvenanceAIGenerated)
	}
	if first.Confidence != domain.ConfidenceMedium {
		t.Errorf("first Confidence = %q, want %q", first.Confidence, domain.ConfidenceMedium)
	}

	second, err := svc.Analyze(ctx, "banana")
	if err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}
	if second.Provenance != domain.ProvenanceCached {
		t.Errorf("second Provenance = %q, want %q", second.Provenance, domain.ProvenanceCached)
	}
	if second.Confidence != domain.ConfidenceHigh {
		t.Errorf("second Confidence = %q, want %q", second.Confidence, domain.ConfidenceHigh)
	}
	if first.NutritionFacts != second.NutritionFacts {
		t.Errorf("facts differ between calls: %+v vs %+v", first.NutritionFacts, second.NutritionFacts)
	}

	if estimator.callCount() != 1 {
		t.Errorf("estimator calls = %d, want 1", estimator.callCount())
	}
}

func TestAnalyze_KeyNormalizationSharesEntries(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: bananaPayload}
	svc := newTestService(estimator)

	if _, err := svc.Analyze(ctx, "Banana"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	result, err := svc.Analyze(ctx, "  banana  ")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Provenance != domain.ProvenanceCached {
		t.Errorf("Provenance = %q, want %q for normalized duplicate", result.Provenance, domain.ProvenanceCached)
	}
	if estimator.callCount() != 1 {
		t.Errorf("estimator calls = %d, want 1", estimator.callCount())
	}
}

func TestAnalyze_CarbohydratesFieldName(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{
		payload: `{"calories": 105, "fat": 0.4, "carbohydrates": 27, "protein": 1.3}`,
	}
	svc := newTestService(estimator)

	result, err := svc.Analyze(ctx, "banana")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Carbs != 27 {
		t.Errorf("Carbs = %v, want 27", result.Carbs)
	}
}

func TestAnalyze_EstimationFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		estimator *mockEstimator
	}{
		{"transport error", &mockEstimator{err: domain.ErrEstimatorUnavailable}},
		{"empty payload", &mockEstimator{payload: "  "}},
		{"unparseable payload", &mockEstimator{payload: "not json at all"}},
		{"calories out of range", &mockEstimator{payload: `{"calories": 99999, "fat": 1, "carbs": 1, "protein": 1}`}},
		{"negative value", &mockEstimator{payload: `{"calories": 100, "fat": -5, "carbs": 1, "protein": 1}`}},
		{"grams out of range", &mockEstimator{payload: `{"calories": 100, "fat": 1, "carbs": 2000, "protein": 1}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.estimator)

			_, err := svc.Analyze(ctx, "mystery stew")

			var eErr *domain.EstimationError
			if !errors.As(err, &eErr) {
				t.Fatalf("error = %v, want *domain.EstimationError", err)
			}
			if eErr.Description != "mystery stew" {
				t.Errorf("Description = %q, want original description", eErr.Description)
			}
			if !strings.Contains(eErr.Error(), "mystery stew") {
				t.Errorf("Error() = %q, want it to carry the description", eErr.Error())
			}

			// Rejected responses must never populate the cache
			if size := svc.CacheStats().Size; size != 0 {
				t.Errorf("cache size = %d, want 0 after rejected response", size)
			}
		})
	}
}

func TestAnalyze_MissingFieldsCoercedToZero(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: `{"calories": 105, "protein": 1.3}`}
	svc := newTestService(estimator)

	result, err := svc.Analyze(ctx, "banana")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Fat != 0 || result.Carbs != 0 {
		t.Errorf("missing fields = fat %v carbs %v, want zeros", result.Fat, result.Carbs)
	}
	if result.Calories != 105 || result.Protein != 1.3 {
		t.Errorf("present fields lost: %+v", result.NutritionFacts)
	}
}

func TestClearCache_ForcesFreshEstimatorCall(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: bananaPayload}
	svc := newTestService(estimator)

	if _, err := svc.Analyze(ctx, "banana"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	svc.ClearCache()

	result, err := svc.Analyze(ctx, "banana")
	if err != nil {
		t.Fatalf("Analyze() after clear error = %v", err)
	}
	if result.Provenance != domain.ProvenanceAIGenerated {
		t.Errorf("Provenance = %q, want fresh %q after clear", result.Provenance, domain.ProvenanceAIGenerated)
	}
	if estimator.callCount() != 2 {
		t.Errorf("estimator calls = %d, want 2", estimator.callCount())
	}
}

func TestCacheStats_Delegates(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: bananaPayload}
	svc := newTestService(estimator)

	if _, err := svc.Analyze(ctx, "banana"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	stats := svc.CacheStats()
	if stats.Size != 1 {
		t.Errorf("Stats().Size = %d, want 1", stats.Size)
	}
	if stats.MaxSize != cache.DefaultMaxSize {
		t.Errorf("Stats().MaxSize = %d, want %d", stats.MaxSize, cache.DefaultMaxSize)
	}
}

func TestAnalyze_DedupeCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	estimator := &mockEstimator{payload: bananaPayload, block: make(chan struct{})}
	svc := NewAnalysisService(cache.New(), estimator, nil, AnalysisServiceConfig{DedupeInFlight: true})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*domain.AnalysisResult, callers)
	errs := make([]error, callers)

	start := make(chan struct{})
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.Analyze(ctx, "banana")
		}(i)
	}
	close(start)

	// Wait for the single upstream call to be in flight, give the other
	// callers time to pile onto it, then release the estimator.
	for estimator.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(estimator.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Analyze[%d] error = %v", i, errs[i])
		}
		if results[i].NutritionFacts != bananaFacts {
			t.Errorf("Analyze[%d] facts = %+v, want %+v", i, results[i].NutritionFacts, bananaFacts)
		}
	}
	if calls := estimator.callCount(); calls != 1 {
		t.Errorf("estimator calls = %d, want 1 with dedup enabled", calls)
	}
}
