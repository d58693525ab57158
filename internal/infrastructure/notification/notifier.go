package notification

import (
	"context"

	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
)

// LogNotifier is a development stand-in for an SMS or email gateway: it
// writes deliveries to the log instead of an external channel. The OTP
// code appears only here, never in an HTTP response.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOTP(ctx context.Context, client *transaction.ClientProfile, tx *transaction.Transaction, code string) error {
	n.log.Info("otp delivery",
		zap.String("client_id", client.ID.String()),
		zap.String("email", client.Email),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("code", code),
	)
	return nil
}

func (n *LogNotifier) SendFraudAlert(ctx context.Context, client *transaction.ClientProfile, tx *transaction.Transaction, alert *risk.FraudAlert) error {
	n.log.Warn("fraud alert delivery",
		zap.String("client_id", client.ID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("alert_id", alert.ID.String()),
		zap.String("risk_level", string(alert.Level)),
		zap.Int("score", alert.Score),
	)
	return nil
}
