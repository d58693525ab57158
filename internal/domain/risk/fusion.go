package risk

import (
	"time"

	"github.com/google/uuid"
)

// Fuse combines the rule report and the anomaly result into a final
// assessment. It is a pure function of its inputs: same report, result
// and config always produce the same assessment.
//
// The numeric risk score is the additive rule score with the location
// increment already folded in. The anomaly score never changes the
// numeric score; it contributes only to the step-up decision.
func Fuse(transactionID uuid.UUID, report RuleReport, anomaly AnomalyResult, cfg Config, now time.Time) *Assessment {
	score := report.Score

	level := LevelLow
	switch {
	case score >= cfg.HighRiskScore:
		level = LevelHigh
	case score >= cfg.MediumRiskScore:
		level = LevelMedium
	}

	decision := DecisionApprove
	switch {
	case score >= cfg.BlockScore:
		decision = DecisionBlock
	case score >= cfg.FlagScore:
		decision = DecisionFlag
	case score >= cfg.MonitorScore:
		decision = DecisionMonitor
	}

	requiresOTP := report.LocationForcesOTP

	switch cfg.OTPPolicy {
	case OTPPolicyAnyTrigger:
		if report.Violations > 0 {
			requiresOTP = true
		}
	default:
		if score >= cfg.HighRiskScore {
			requiresOTP = true
		}
	}

	// A neutral fallback score must not trip the anomaly gate, so the
	// comparison is guarded on model availability.
	if anomaly.ModelAvailable && anomaly.Score >= cfg.AnomalyOTPThreshold {
		requiresOTP = true
	}

	return &Assessment{
		TransactionID:  transactionID,
		RiskScore:      score,
		Triggers:       report.Triggers,
		RequiresOTP:    requiresOTP,
		Level:          level,
		Decision:       decision,
		AnomalyScore:   anomaly.Score,
		ModelAvailable: anomaly.ModelAvailable,
		AssessedAt:     now,
	}
}
