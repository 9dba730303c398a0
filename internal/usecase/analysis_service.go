package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nutrilog/backend/internal/domain"
	"github.com/nutrilog/backend/internal/metrics"
)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	// DedupeInFlight collapses concurrent cache misses for the same
	// normalized key into a single estimator call.
	DedupeInFlight bool
}

// AnalysisService turns free-text food descriptions into nutrition facts,
// consulting the facts cache before calling the external estimator.
// Stateless across calls except for the shared cache.
type AnalysisService struct {
	cache     domain.FactsCache
	estimator domain.NutritionEstimator
	logger    *zap.Logger
	group     singleflight.Group
	dedupe    bool
}

// NewAnalysisService creates an analysis service with its dependencies.
func NewAnalysisService(
	cache domain.FactsCache,
	estimator domain.NutritionEstimator,
	logger *zap.Logger,
	config AnalysisServiceConfig,
) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		cache:     cache,
		estimator: estimator,
		logger:    logger,
		dedupe:    config.DedupeInFlight,
	}
}

// Analyze validates the description, serves from cache when possible and
// otherwise asks the estimator, validating and caching its answer.
// Fails with *domain.ValidationError before any external call and with
// *domain.EstimationError for any estimator-path failure.
func (s *AnalysisService) Analyze(ctx context.Context, description string) (*domain.AnalysisResult, error) {
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	key := NormalizeKey(description)

	if facts, ok := s.cache.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		s.logger.Debug("facts cache hit", zap.String("key", key))
		return &domain.AnalysisResult{
			NutritionFacts: facts,
			Provenance:     domain.ProvenanceCached,
			Confidence:     domain.ConfidenceHigh,
		}, nil
	}

	facts, err := s.estimate(ctx, key, description)
	if err != nil {
		metrics.EstimationFailuresTotal.Inc()
		s.logger.Error("nutrition estimation failed",
			zap.String("description", description),
			zap.Error(err),
		)
		return nil, domain.NewEstimationError(description, err)
	}

	return &domain.AnalysisResult{
		NutritionFacts: facts,
		Provenance:     domain.ProvenanceAIGenerated,
		Confidence:     domain.ConfidenceMedium,
	}, nil
}

// estimate runs the miss path, optionally deduplicating concurrent calls
// for the same key.
func (s *AnalysisService) estimate(ctx context.Context, key, description string) (domain.NutritionFacts, error) {
	if !s.dedupe {
		return s.fetchAndStore(ctx, key, description)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetchAndStore(ctx, key, description)
	})
	if err != nil {
		return domain.NutritionFacts{}, err
	}
	return v.(domain.NutritionFacts), nil
}

// fetchAndStore calls the estimator with the original description
// (normalization can drop quantity or phrasing nuance the model needs),
// parses and range-validates the payload, and populates the cache only
// on success.
func (s *AnalysisService) fetchAndStore(ctx context.Context, key, description string) (domain.NutritionFacts, error) {
	metrics.EstimatorCallsTotal.Inc()

	payload, err := s.estimator.Estimate(ctx, description)
	if err != nil {
		return domain.NutritionFacts{}, err
	}
	if strings.TrimSpace(payload) == "" {
		return domain.NutritionFacts{}, domain.ErrEmptyResponse
	}

	facts, anomalies, err := parseFacts(payload)
	if err != nil {
		s.logger.Warn("unparseable estimator payload",
			zap.String("payload", truncate(payload, 200)),
			zap.Error(err),
		)
		return domain.NutritionFacts{}, err
	}
	for _, field := range anomalies {
		s.logger.Warn("estimator payload missing numeric field, coerced to zero",
			zap.String("field", field),
			zap.String("payload", truncate(payload, 200)),
		)
	}

	if !facts.Valid() {
		s.logger.Warn("estimated facts failed range validation",
			zap.Float64("calories", facts.Calories),
			zap.Float64("fat", facts.Fat),
			zap.Float64("carbs", facts.Carbs),
			zap.Float64("protein", facts.Protein),
		)
		return domain.NutritionFacts{}, domain.ErrFactsOutOfRange
	}

	s.cache.Set(key, facts)
	return facts, nil
}

// ClearCache drops every cached entry. Exposed for administrative reset
// and test isolation.
func (s *AnalysisService) ClearCache() {
	s.cache.Clear()
}

// CacheStats returns the current cache snapshot for monitoring.
func (s *AnalysisService) CacheStats() domain.CacheStats {
	return s.cache.Stats()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
