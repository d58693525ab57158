package risk

// Registry keys for numeric threshold overrides.
const (
	KeyLargeAmountThreshold  = "LARGE_AMOUNT_THRESHOLD"
	KeyMaxTransactionsHourly = "MAX_TRANSACTIONS_PER_HOUR"
	KeyLowBalanceFloor       = "LOW_BALANCE_THRESHOLD"
	KeyZScoreThreshold       = "Z_SCORE_THRESHOLD"
	KeyMaxDistanceKm         = "MAX_DISTANCE_KM"
	KeyLocationRiskIncrement = "LOCATION_RISK_INCREMENT"
	KeyMediumRiskScore       = "MEDIUM_RISK_SCORE"
	KeyHighRiskScore         = "HIGH_RISK_SCORE"
	KeyAnomalyOTPThreshold   = "ANOMALY_OTP_THRESHOLD"
	KeyOTPTTLMinutes         = "OTP_TTL_MINUTES"
	KeyOTPMaxAttempts        = "OTP_MAX_ATTEMPTS"
)

// Registry names for rule enablement.
const (
	RuleLargeAmount        = "large_amount"
	RuleHighFrequency      = "high_frequency"
	RuleLowBalance         = "low_balance"
	RuleStatisticalOutlier = "statistical_outlier"
	RuleUnusualHour        = "unusual_hour"
	RuleLocationCheck      = "location_check"
)
