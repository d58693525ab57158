package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/pkg/geo"
)

// TransactionModel is the persistence shape of a transaction.
type TransactionModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClientID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type            string          `gorm:"size:16;not null"`
	Status          string          `gorm:"size:16;not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency        string          `gorm:"size:8;not null"`
	ToAccountNumber string          `gorm:"size:64"`
	Latitude        *float64
	Longitude       *float64
	RiskScore       int
	Triggers        string    `gorm:"type:jsonb;default:'[]'"`
	Timestamp       time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (TransactionModel) TableName() string { return "transactions" }

func toTransactionModel(t *transaction.Transaction) *TransactionModel {
	m := &TransactionModel{
		ID:              t.ID,
		ClientID:        t.ClientID,
		Type:            string(t.Type),
		Status:          string(t.Status),
		Amount:          t.Amount,
		Currency:        t.Currency,
		ToAccountNumber: t.ToAccountNumber,
		RiskScore:       t.RiskScore,
		Triggers:        marshalStrings(t.Triggers),
		Timestamp:       t.Timestamp,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.CurrentLocation != nil {
		m.Latitude = &t.CurrentLocation.Latitude
		m.Longitude = &t.CurrentLocation.Longitude
	}
	return m
}

func (m *TransactionModel) toDomain() *transaction.Transaction {
	t := &transaction.Transaction{
		ID:              m.ID,
		ClientID:        m.ClientID,
		Type:            transaction.Type(m.Type),
		Status:          transaction.Status(m.Status),
		Amount:          m.Amount,
		Currency:        m.Currency,
		ToAccountNumber: m.ToAccountNumber,
		RiskScore:       m.RiskScore,
		Triggers:        unmarshalStrings(m.Triggers),
		Timestamp:       m.Timestamp,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.Latitude != nil && m.Longitude != nil {
		t.CurrentLocation = &geo.Point{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return t
}

// ClientModel is the persistence shape of a client profile.
type ClientModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	FullName          string          `gorm:"size:128"`
	Email             string          `gorm:"size:128;uniqueIndex"`
	BankAccountNumber string          `gorm:"size:64;uniqueIndex"`
	Balance           decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	AvgAmount         float64
	StdAmount         float64
	HomeLatitude      *float64
	HomeLongitude     *float64
	VerifiedLatitude  *float64
	VerifiedLongitude *float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ClientModel) TableName() string { return "clients" }

func toClientModel(c *transaction.ClientProfile) *ClientModel {
	m := &ClientModel{
		ID:                c.ID,
		UserID:            c.UserID,
		FullName:          c.FullName,
		Email:             c.Email,
		BankAccountNumber: c.BankAccountNumber,
		Balance:           c.Balance,
		AvgAmount:         c.AvgAmount,
		StdAmount:         c.StdAmount,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if c.HomeLocation != nil {
		m.HomeLatitude = &c.HomeLocation.Latitude
		m.HomeLongitude = &c.HomeLocation.Longitude
	}
	if c.LastVerifiedLocation != nil {
		m.VerifiedLatitude = &c.LastVerifiedLocation.Latitude
		m.VerifiedLongitude = &c.LastVerifiedLocation.Longitude
	}
	return m
}

func (m *ClientModel) toDomain() *transaction.ClientProfile {
	c := &transaction.ClientProfile{
		ID:                m.ID,
		UserID:            m.UserID,
		FullName:          m.FullName,
		Email:             m.Email,
		BankAccountNumber: m.BankAccountNumber,
		Balance:           m.Balance,
		AvgAmount:         m.AvgAmount,
		StdAmount:         m.StdAmount,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.HomeLatitude != nil && m.HomeLongitude != nil {
		c.HomeLocation = &geo.Point{Latitude: *m.HomeLatitude, Longitude: *m.HomeLongitude}
	}
	if m.VerifiedLatitude != nil && m.VerifiedLongitude != nil {
		c.LastVerifiedLocation = &geo.Point{Latitude: *m.VerifiedLatitude, Longitude: *m.VerifiedLongitude}
	}
	return c
}

// FraudAlertModel is the persistence shape of a fraud alert. The unique
// index on TransactionID backs the atomic get-or-create.
type FraudAlertModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RiskLevel     string    `gorm:"size:16;not null"`
	Score         int       `gorm:"not null"`
	Triggers      string    `gorm:"type:jsonb;default:'[]'"`
	Status        string    `gorm:"size:16;not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (FraudAlertModel) TableName() string { return "fraud_alerts" }

func toAlertModel(a *risk.FraudAlert) *FraudAlertModel {
	return &FraudAlertModel{
		ID:            a.ID,
		TransactionID: a.TransactionID,
		RiskLevel:     string(a.Level),
		Score:         a.Score,
		Triggers:      marshalStrings(a.Triggers),
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (m *FraudAlertModel) toDomain() *risk.FraudAlert {
	return &risk.FraudAlert{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Level:         risk.Level(m.RiskLevel),
		Score:         m.Score,
		Triggers:      unmarshalStrings(m.Triggers),
		Status:        risk.AlertStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// TransactionOTPModel is the persistence shape of a verification
// challenge.
type TransactionOTPModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	Code          string    `gorm:"size:8;not null"`
	Attempts      int       `gorm:"not null"`
	MaxAttempts   int       `gorm:"not null"`
	Used          bool      `gorm:"not null;index"`
	CreatedAt     time.Time
	ExpiresAt     time.Time `gorm:"index"`
}

func (TransactionOTPModel) TableName() string { return "transaction_otps" }

func toOTPModel(o *risk.TransactionOTP) *TransactionOTPModel {
	return &TransactionOTPModel{
		ID:            o.ID,
		TransactionID: o.TransactionID,
		UserID:        o.UserID,
		Code:          o.Code,
		Attempts:      o.Attempts,
		MaxAttempts:   o.MaxAttempts,
		Used:          o.Used,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
	}
}

func (m *TransactionOTPModel) toDomain() *risk.TransactionOTP {
	return &risk.TransactionOTP{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Code:          m.Code,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		Used:          m.Used,
		CreatedAt:     m.CreatedAt,
		ExpiresAt:     m.ExpiresAt,
	}
}

// ThresholdModel stores one numeric threshold override.
type ThresholdModel struct {
	Key       string  `gorm:"size:64;primaryKey"`
	Value     float64 `gorm:"not null"`
	UpdatedAt time.Time
}

func (ThresholdModel) TableName() string { return "risk_thresholds" }

// RuleModel stores per-rule enablement.
type RuleModel struct {
	Name      string `gorm:"size:64;primaryKey"`
	Enabled   bool   `gorm:"not null;default:true"`
	UpdatedAt time.Time
}

func (RuleModel) TableName() string { return "risk_rules" }

func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return []string{}
	}
	return values
}
