package handlers

import (
	"context"
	"errors"

	"github.com/akilaramal69-beep/telelinkworking/internal/messages"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotNotifier maintains the per-task status message: created at
// admission, edited while the pipeline runs, finalized once and left in
// the chat as the task's record.
type BotNotifier struct {
	bot *bot.Bot
	log *zap.SugaredLogger
}

func NewBotNotifier(b *bot.Bot, log *zap.SugaredLogger) *BotNotifier {
	return &BotNotifier{bot: b, log: log}
}

func (n *BotNotifier) Start(ctx context.Context, task *types.Task) (int, error) {
	msg, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      task.ChatID,
		Text:        messages.RequestReceived(task.SourceURL),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: cancelKeyboard(),
	})
	if err != nil {
		return 0, err
	}
	if msg == nil {
		return 0, errors.New("no status message returned")
	}
	return msg.ID, nil
}

func (n *BotNotifier) Edit(ctx context.Context, chatID int64, messageID int, text string) {
	_, err := n.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: cancelKeyboard(),
	})
	if err != nil {
		n.log.Debugw("status edit failed", "chat", chatID, "err", err)
	}
}

// Finish drops the cancel button along with writing the terminal text.
func (n *BotNotifier) Finish(ctx context.Context, chatID int64, messageID int, text string) {
	_, err := n.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		n.log.Debugw("status finish failed", "chat", chatID, "err", err)
	}
}

func cancelKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✖️ Cancel", CallbackData: "cancel_task"}},
		},
	}
}
