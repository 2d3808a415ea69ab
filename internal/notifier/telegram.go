package notifier

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/udihermony/algo-trader/pkg/utils"
)

// TelegramNotifier отправляет односторонние уведомления оператору:
// исполненные ордера, ошибки pipeline. Команды не принимает.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *utils.Logger
}

// NewTelegramNotifier создает notifier. Возвращает nil если токен пустой —
// вызывающие обязаны переживать отсутствие notifier.
func NewTelegramNotifier(token string, chatID int64, logger *utils.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("Telegram notifier authorized as @%s", bot.Self.UserName)

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Notify отправляет сообщение в настроенный чат.
// Ошибки доставки только логируются: уведомления не должны ронять pipeline.
func (n *TelegramNotifier) Notify(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("Failed to send telegram notification: %v", err)
	}
}
