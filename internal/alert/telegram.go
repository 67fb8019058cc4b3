package alert

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"wellbeing-backend/internal/config"
)

// TelegramAlerter posts an ops-channel message when a support request reaches
// the global tier. Global-tier requests mean every narrower audience went
// unanswered, so operators want to see them.
type TelegramAlerter struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramAlerter creates the alerter, or returns nil when ops alerts are
// disabled. A nil alerter is safe to call.
func NewTelegramAlerter(cfg *config.Config, logger *zap.Logger) (*TelegramAlerter, error) {
	if !cfg.OpsAlerts.Enabled || cfg.OpsAlerts.TelegramBotToken == "" {
		logger.Info("Telegram ops alerts are disabled (ops_alerts.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.OpsAlerts.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram ops alert bot authorized", zap.String("username", botAPI.Self.UserName))

	return &TelegramAlerter{
		api:    botAPI,
		chatID: cfg.OpsAlerts.TelegramChatID,
		logger: logger,
	}, nil
}

// GlobalEscalation reports that an assessment was widened to the global tier.
func (a *TelegramAlerter) GlobalEscalation(username, assessmentID string) {
	if a == nil {
		return
	}

	text := fmt.Sprintf("🌐 Support request escalated to the global tier\nUser: %s\nAssessment: %s", username, assessmentID)
	msg := tgbotapi.NewMessage(a.chatID, text)

	if _, err := a.api.Send(msg); err != nil {
		a.logger.Error("Failed to send Telegram ops alert", zap.Error(err))
	}
}
