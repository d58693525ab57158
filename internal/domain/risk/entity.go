package risk

import (
	"time"

	"github.com/google/uuid"
)

// Level represents the severity bucket of a risk score
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Decision is the coarse advisory label for a transaction. The binding
// action that gates money movement is Assessment.RequiresOTP, not this
// label.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionMonitor Decision = "monitor"
	DecisionFlag    Decision = "flag"
	DecisionBlock   Decision = "block"
)

// AlertStatus represents the review state of a fraud alert
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusReviewed AlertStatus = "reviewed"
	AlertStatusResolved AlertStatus = "resolved"
)

// RuleReport is the accumulated output of the rule battery and the
// location check for one transaction.
type RuleReport struct {
	// Score is the additive rule score, location increment included.
	Score int `json:"score"`

	// Triggers is the ordered audit list: fired-rule messages plus
	// skip records for rules that could not be evaluated.
	Triggers []string `json:"triggers"`

	// Violations counts rules that actually fired (skip records are
	// excluded); used by the any-trigger step-up policy.
	Violations int `json:"violations"`

	// LocationForcesOTP is set when the effective distance exceeds the
	// configured threshold. It cannot be overridden downward by fusion.
	LocationForcesOTP bool `json:"location_forces_otp"`

	DistanceFromHome         float64 `json:"distance_from_home"`
	DistanceFromLastVerified float64 `json:"distance_from_last_verified"`
	EffectiveDistance        float64 `json:"effective_distance"`

	// ClosestReference names which trusted point produced the smaller
	// distance: "home" or "last_verified". Empty when the check was
	// skipped.
	ClosestReference string `json:"closest_reference,omitempty"`
}

// AnomalyResult is the output of the anomaly scorer.
type AnomalyResult struct {
	// Score is in [0,1]; 1.0 is most anomalous. When the model is not
	// loaded the scorer returns a neutral 0.5 which must not count as
	// either high or low risk.
	Score float64 `json:"score"`

	// ModelAvailable distinguishes a genuine score from the neutral
	// fallback.
	ModelAvailable bool `json:"model_available"`

	ModelVersion string `json:"model_version,omitempty"`
}

// Assessment is the fused outcome of rule evaluation, location risk and
// anomaly scoring for one transaction.
type Assessment struct {
	TransactionID uuid.UUID `json:"transaction_id"`

	RiskScore   int      `json:"risk_score"`
	Triggers    []string `json:"triggers"`
	RequiresOTP bool     `json:"requires_otp"`
	Level       Level    `json:"risk_level"`
	Decision    Decision `json:"decision"`

	AnomalyScore   float64 `json:"anomaly_score"`
	ModelAvailable bool    `json:"model_available"`

	AssessedAt time.Time `json:"assessed_at"`
}

// FraudAlert records that a transaction was flagged. At most one alert
// exists per transaction; repeated assessments return the existing row.
type FraudAlert struct {
	ID            uuid.UUID   `json:"id"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	Level         Level       `json:"risk_level"`
	Score         int         `json:"score"`
	Triggers      []string    `json:"triggers"`
	Status        AlertStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewFraudAlert creates an active alert for a flagged transaction.
func NewFraudAlert(transactionID uuid.UUID, level Level, score int, triggers []string) *FraudAlert {
	now := time.Now()
	return &FraudAlert{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Level:         level,
		Score:         score,
		Triggers:      triggers,
		Status:        AlertStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Review marks the alert as reviewed. Only the review workflow mutates
// alert status, never the scoring path.
func (a *FraudAlert) Review() error {
	if a.Status != AlertStatusActive {
		return ErrAlertAlreadyReviewed
	}
	a.Status = AlertStatusReviewed
	a.UpdatedAt = time.Now()
	return nil
}

// Resolve marks the alert as resolved.
func (a *FraudAlert) Resolve() error {
	if a.Status == AlertStatusResolved {
		return ErrAlertAlreadyReviewed
	}
	a.Status = AlertStatusResolved
	a.UpdatedAt = time.Now()
	return nil
}
