package ml

import (
	"sync"

	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
)

// neutralScore is returned when no model is loaded. It sits exactly
// between the extremes so it can never read as clearly normal or
// clearly anomalous.
const neutralScore = 0.5

// Scorer wraps a loaded forest behind the anomaly-scoring contract: it
// always produces a result, degrading to the neutral score when no
// model is available. The model can be swapped at runtime after
// retraining.
type Scorer struct {
	mu     sync.RWMutex
	forest *Forest
	log    *zap.Logger
}

func NewScorer(log *zap.Logger) *Scorer {
	return &Scorer{log: log}
}

// LoadFromFile loads a model from disk. A missing or malformed file
// leaves the scorer in fallback mode rather than failing startup.
func (s *Scorer) LoadFromFile(path string) error {
	forest, err := LoadForest(path)
	if err != nil {
		s.log.Warn("anomaly model unavailable, scoring with neutral fallback",
			zap.String("path", path), zap.Error(err))
		return err
	}
	s.SetForest(forest)
	s.log.Info("anomaly model loaded",
		zap.String("path", path),
		zap.String("version", forest.Version),
		zap.Int("trees", len(forest.Trees)),
	)
	return nil
}

// SetForest installs a model, replacing any previous one.
func (s *Scorer) SetForest(f *Forest) {
	s.mu.Lock()
	s.forest = f
	s.mu.Unlock()
}

// Available reports whether a model is loaded.
func (s *Scorer) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forest != nil
}

// Score evaluates one feature vector. Scoring errors (for example a
// feature width mismatch against an older model) degrade to the neutral
// result instead of failing the assessment.
func (s *Scorer) Score(features *FeatureVector) risk.AnomalyResult {
	s.mu.RLock()
	forest := s.forest
	s.mu.RUnlock()

	if forest == nil {
		return risk.AnomalyResult{Score: neutralScore, ModelAvailable: false}
	}

	score, err := forest.Score(features.ToVector())
	if err != nil {
		s.log.Error("anomaly scoring failed, using neutral fallback", zap.Error(err))
		return risk.AnomalyResult{Score: neutralScore, ModelAvailable: false}
	}

	return risk.AnomalyResult{
		Score:          score,
		ModelAvailable: true,
		ModelVersion:   forest.Version,
	}
}
