package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender delivers a notification message to a staff member's chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// telegramAPI is the slice of tgbotapi.BotAPI the sender needs; the
// interface keeps tests off the network.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramSender struct {
	bot    telegramAPI
	logger *zap.Logger
}

// NewTelegramSender connects to the Telegram Bot API. An empty token
// returns a no-op sender so the service runs without delivery configured.
func NewTelegramSender(token string, logger *zap.Logger) (Sender, error) {
	if strings.TrimSpace(token) == "" {
		logger.Warn("telegram token not configured, notifications stay in-app only")
		return NoopSender{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &telegramSender{bot: bot, logger: logger}, nil
}

// NewTelegramSenderWithAPI injects a bot implementation, for tests.
func NewTelegramSenderWithAPI(api telegramAPI, logger *zap.Logger) Sender {
	return &telegramSender{bot: api, logger: logger}
}

// telegram rejects messages above 4096 chars; notifications are short,
// so truncation is enough.
const maxMessageLen = 4000

func (s *telegramSender) SendMessage(chatID int64, text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// NoopSender drops messages. Used when no delivery channel is configured.
type NoopSender struct{}

func (NoopSender) SendMessage(int64, string) error { return nil }
