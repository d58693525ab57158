package ml

import (
	"time"

	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/pkg/geo"
)

// FeatureCount is the fixed width of the feature vector. The trained
// model is bound to this width; a mismatch fails loading rather than
// silently misaligning features.
const FeatureCount = 15

// defaultHoursSincePrev stands in when the client has no completed
// history. A day-scale gap reads as an ordinary, non-bursty cadence.
const defaultHoursSincePrev = 24.0

// FeatureVector is the model input for one transaction. Field order is
// frozen; ToVector defines the canonical layout.
type FeatureVector struct {
	Amount             float64
	Balance            float64
	AvgAmount          float64
	StdAmount          float64
	TypeCode           float64
	HourOfDay          float64
	DayOfWeek          float64
	DistanceHome       float64
	DistanceVerified   float64
	EffectiveDistance  float64
	HasLocation        float64
	CountLastHour      float64
	HoursSincePrev     float64
	AccountAgeDays     float64
	BalanceToMeanRatio float64
}

// ToVector flattens the features in canonical order.
func (f *FeatureVector) ToVector() []float64 {
	return []float64{
		f.Amount,
		f.Balance,
		f.AvgAmount,
		f.StdAmount,
		f.TypeCode,
		f.HourOfDay,
		f.DayOfWeek,
		f.DistanceHome,
		f.DistanceVerified,
		f.EffectiveDistance,
		f.HasLocation,
		f.CountLastHour,
		f.HoursSincePrev,
		f.AccountAgeDays,
		f.BalanceToMeanRatio,
	}
}

func typeCode(t transaction.Type) float64 {
	switch t {
	case transaction.TypeTransfer:
		return 2
	case transaction.TypeWithdraw:
		return 1
	default:
		return 0
	}
}

// Extract builds the feature vector for one transaction. recentCount is
// the client's transaction count inside the frequency window and
// lastCompletedAt is the timestamp of the previous completed
// transaction, nil when none exists.
func Extract(tx *transaction.Transaction, client *transaction.ClientProfile, recentCount int64, lastCompletedAt *time.Time, now time.Time) *FeatureVector {
	f := &FeatureVector{
		TypeCode:       typeCode(tx.Type),
		HourOfDay:      float64(tx.Timestamp.Hour()),
		DayOfWeek:      float64(tx.Timestamp.Weekday()),
		CountLastHour:  float64(recentCount),
		HoursSincePrev: defaultHoursSincePrev,
		AccountAgeDays: client.AccountAgeDays(now),
	}

	f.Amount, _ = tx.Amount.Float64()
	f.Balance, _ = client.Balance.Float64()
	f.AvgAmount = client.AvgAmount
	f.StdAmount = client.StdAmount

	if client.AvgAmount > 0 {
		f.BalanceToMeanRatio = f.Balance / client.AvgAmount
	}

	if lastCompletedAt != nil {
		gap := tx.Timestamp.Sub(*lastCompletedAt).Hours()
		if gap >= 0 {
			f.HoursSincePrev = gap
		}
	}

	current := tx.CurrentLocation
	if current == nil {
		current = client.LastVerifiedLocation
	}
	if current != nil && client.HomeLocation != nil {
		f.HasLocation = 1
		f.DistanceHome = geo.Haversine(current, client.HomeLocation)
		f.EffectiveDistance = f.DistanceHome
		if client.LastVerifiedLocation != nil {
			f.DistanceVerified = geo.Haversine(current, client.LastVerifiedLocation)
			if f.DistanceVerified < f.EffectiveDistance {
				f.EffectiveDistance = f.DistanceVerified
			}
		}
	}

	return f
}
