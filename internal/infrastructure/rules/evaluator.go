package rules

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/pkg/geo"
)

// Fixed score increments per rule. Thresholds are configurable through
// the registry; the increments are not.
const (
	ScoreLargeAmount        = 30
	ScoreHighFrequency      = 25
	ScoreLowBalance         = 20
	ScoreStatisticalOutlier = 15
	ScoreUnusualHour        = 10
)

// Input carries everything the rule battery needs for one transaction.
// History aggregates are resolved by the caller so the evaluator itself
// stays side-effect free.
type Input struct {
	Tx     *transaction.Transaction
	Client *transaction.ClientProfile

	// RecentCount is the number of transactions the client initiated
	// inside the frequency window, the current one included.
	RecentCount int64

	// HasPriorCompleted confirms the client completed a transaction
	// before this one. Last-verified coordinates without a completed
	// transaction behind them are not a trusted reference.
	HasPriorCompleted bool
}

// Evaluator runs the additive rule battery and the location check.
// Rules are independent: each inspects the input and either adds its
// increment or does nothing, so evaluation order never changes the
// score.
type Evaluator struct {
	log *zap.Logger
}

func NewEvaluator(log *zap.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Evaluate scores one transaction against the config snapshot.
func (e *Evaluator) Evaluate(in Input, cfg risk.Config) risk.RuleReport {
	report := risk.RuleReport{Triggers: []string{}}

	e.checkLocation(in, cfg, &report)
	e.checkLargeAmount(in, cfg, &report)
	e.checkHighFrequency(in, cfg, &report)
	e.checkLowBalance(in, cfg, &report)
	e.checkStatisticalOutlier(in, cfg, &report)
	e.checkUnusualHour(in, cfg, &report)

	e.log.Debug("rule evaluation complete",
		zap.String("transaction_id", in.Tx.ID.String()),
		zap.Int("score", report.Score),
		zap.Int("violations", report.Violations),
		zap.Bool("location_forces_otp", report.LocationForcesOTP),
	)
	return report
}

// checkLocation compares the transaction origin against both trusted
// reference points and scores the smaller of the two distances. A
// client who verified a challenge near their current position is not
// re-penalized for being far from home.
func (e *Evaluator) checkLocation(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.LocationCheck {
		return
	}

	current := in.Tx.CurrentLocation
	if current == nil {
		current = in.Client.LastVerifiedLocation
	}
	if current == nil {
		report.Triggers = append(report.Triggers, "Location check skipped: no transaction coordinates")
		return
	}
	if in.Client.HomeLocation == nil {
		report.Triggers = append(report.Triggers, "Location check skipped: no home coordinates on profile")
		return
	}

	report.DistanceFromHome = geo.Haversine(current, in.Client.HomeLocation)
	report.DistanceFromLastVerified = report.DistanceFromHome
	report.EffectiveDistance = report.DistanceFromHome
	report.ClosestReference = "home"

	if in.HasPriorCompleted && in.Client.LastVerifiedLocation != nil {
		report.DistanceFromLastVerified = geo.Haversine(current, in.Client.LastVerifiedLocation)
		if report.DistanceFromLastVerified < report.EffectiveDistance {
			report.EffectiveDistance = report.DistanceFromLastVerified
			report.ClosestReference = "last_verified"
		}
	}

	if report.EffectiveDistance <= cfg.MaxDistanceKm {
		e.log.Debug("location check passed",
			zap.String("transaction_id", in.Tx.ID.String()),
			zap.String("closest_reference", report.ClosestReference),
			zap.Float64("effective_distance_km", report.EffectiveDistance),
		)
		return
	}

	report.Score += cfg.LocationRiskIncrement
	report.Violations++
	report.LocationForcesOTP = true
	report.Triggers = append(report.Triggers, fmt.Sprintf(
		"Location violation: effective distance %.1fkm exceeds %.1fkm (home %.1fkm, last verified %.1fkm)",
		report.EffectiveDistance, cfg.MaxDistanceKm, report.DistanceFromHome, report.DistanceFromLastVerified,
	))
}

func (e *Evaluator) checkLargeAmount(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.LargeAmount {
		return
	}
	if !in.Tx.Type.IsDebit() {
		return
	}
	if in.Tx.Amount.GreaterThan(cfg.LargeAmountThreshold) {
		report.Score += ScoreLargeAmount
		report.Violations++
		report.Triggers = append(report.Triggers, fmt.Sprintf(
			"Large %s: %s > %s", in.Tx.Type, in.Tx.Amount, cfg.LargeAmountThreshold,
		))
	}
}

func (e *Evaluator) checkHighFrequency(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.HighFrequency {
		return
	}
	if in.RecentCount > cfg.MaxTransactionsPerWindow {
		report.Score += ScoreHighFrequency
		report.Violations++
		report.Triggers = append(report.Triggers, fmt.Sprintf(
			"High transaction frequency: %d in last hour", in.RecentCount,
		))
	}
}

// checkLowBalance fires when a debit would leave the projected balance
// under the floor. The projection is balance minus amount; the rule
// runs before settlement so it never reads a post-settlement balance.
func (e *Evaluator) checkLowBalance(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.LowBalance {
		return
	}
	if !in.Tx.Type.IsDebit() {
		return
	}
	remaining := in.Client.Balance.Sub(in.Tx.Amount)
	if remaining.LessThan(cfg.LowBalanceFloor) {
		report.Score += ScoreLowBalance
		report.Violations++
		report.Triggers = append(report.Triggers, fmt.Sprintf(
			"Low balance after %s: %s < %s", in.Tx.Type, remaining, cfg.LowBalanceFloor,
		))
	}
}

// checkStatisticalOutlier compares the amount against the client's
// historical mean in standard deviation units. Clients without enough
// history have zero stored deviation; the rule is skipped rather than
// fired on a degenerate divisor.
func (e *Evaluator) checkStatisticalOutlier(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.StatisticalOutlier {
		return
	}
	if in.Client.AvgAmount <= 0 || in.Client.StdAmount <= 0 {
		report.Triggers = append(report.Triggers, "Statistical outlier check skipped: insufficient history")
		return
	}
	amount, _ := in.Tx.Amount.Float64()
	z := math.Abs(amount-in.Client.AvgAmount) / in.Client.StdAmount
	if z > cfg.ZScoreThreshold {
		report.Score += ScoreStatisticalOutlier
		report.Violations++
		report.Triggers = append(report.Triggers, fmt.Sprintf(
			"Unusual amount: z-score %.2f exceeds %.1f", z, cfg.ZScoreThreshold,
		))
	}
}

func (e *Evaluator) checkUnusualHour(in Input, cfg risk.Config, report *risk.RuleReport) {
	if !cfg.Rules.UnusualHour {
		return
	}
	hour := in.Tx.Timestamp.Hour()
	if cfg.IsUnusualHour(hour) {
		report.Score += ScoreUnusualHour
		report.Violations++
		report.Triggers = append(report.Triggers, fmt.Sprintf("Unusual hour: %02d:00", hour))
	}
}
