package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// OTPPolicy selects how non-location signals contribute to the step-up
// decision. Location violations force a challenge under every policy.
type OTPPolicy string

const (
	// OTPPolicyScoreThreshold requires a challenge when the fused score
	// reaches the high-risk threshold.
	OTPPolicyScoreThreshold OTPPolicy = "score-threshold"

	// OTPPolicyAnyTrigger requires a challenge as soon as any single
	// rule fires, regardless of the fused score.
	OTPPolicyAnyTrigger OTPPolicy = "any-trigger"
)

// RuleToggles enables or disables individual rules. A disabled rule is
// neither scored nor recorded.
type RuleToggles struct {
	LargeAmount        bool `json:"large_amount"`
	HighFrequency      bool `json:"high_frequency"`
	LowBalance         bool `json:"low_balance"`
	StatisticalOutlier bool `json:"statistical_outlier"`
	UnusualHour        bool `json:"unusual_hour"`
	LocationCheck      bool `json:"location_check"`
}

// Config is an immutable snapshot of the scoring thresholds for one
// assessment. Snapshots are taken per request so a registry update
// never changes thresholds mid-evaluation.
type Config struct {
	LargeAmountThreshold decimal.Decimal `json:"large_amount_threshold"`

	MaxTransactionsPerWindow int64         `json:"max_transactions_per_window"`
	FrequencyWindow          time.Duration `json:"frequency_window"`

	LowBalanceFloor decimal.Decimal `json:"low_balance_floor"`

	ZScoreThreshold float64 `json:"z_score_threshold"`

	// Unusual hours run from UnusualHourStart through UnusualHourEnd,
	// wrapping midnight, endpoints included.
	UnusualHourStart int `json:"unusual_hour_start"`
	UnusualHourEnd   int `json:"unusual_hour_end"`

	MaxDistanceKm         float64 `json:"max_distance_km"`
	LocationRiskIncrement int     `json:"location_risk_increment"`

	MediumRiskScore int `json:"medium_risk_score"`
	HighRiskScore   int `json:"high_risk_score"`

	MonitorScore int `json:"monitor_score"`
	FlagScore    int `json:"flag_score"`
	BlockScore   int `json:"block_score"`

	AnomalyOTPThreshold float64 `json:"anomaly_otp_threshold"`

	OTPPolicy      OTPPolicy     `json:"otp_policy"`
	OTPTTL         time.Duration `json:"otp_ttl"`
	OTPMaxAttempts int           `json:"otp_max_attempts"`

	Rules RuleToggles `json:"rules"`
}

// DefaultConfig returns the built-in thresholds used when the registry
// is empty or unreachable.
func DefaultConfig() Config {
	return Config{
		LargeAmountThreshold:     decimal.NewFromInt(10000),
		MaxTransactionsPerWindow: 5,
		FrequencyWindow:          time.Hour,
		LowBalanceFloor:          decimal.NewFromInt(100),
		ZScoreThreshold:          2.0,
		UnusualHourStart:         23,
		UnusualHourEnd:           5,
		MaxDistanceKm:            50.0,
		LocationRiskIncrement:    50,
		MediumRiskScore:          40,
		HighRiskScore:            70,
		MonitorScore:             40,
		FlagScore:                60,
		BlockScore:               80,
		AnomalyOTPThreshold:      0.6,
		OTPPolicy:                OTPPolicyScoreThreshold,
		OTPTTL:                   10 * time.Minute,
		OTPMaxAttempts:           3,
		Rules: RuleToggles{
			LargeAmount:        true,
			HighFrequency:      true,
			LowBalance:         true,
			StatisticalOutlier: true,
			UnusualHour:        true,
			LocationCheck:      true,
		},
	}
}

// IsUnusualHour reports whether the given local hour falls in the
// configured late-night window, handling the midnight wrap.
func (c Config) IsUnusualHour(hour int) bool {
	if c.UnusualHourStart <= c.UnusualHourEnd {
		return hour >= c.UnusualHourStart && hour <= c.UnusualHourEnd
	}
	return hour >= c.UnusualHourStart || hour <= c.UnusualHourEnd
}
