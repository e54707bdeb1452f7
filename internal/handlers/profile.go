package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/internal/messages"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Caption and thumbnail settings persist across tasks in the user
// store, not in the in-flight session state.

func (bh *Handlers) setCaption(ctx context.Context, b *bot.Bot, chatID, userID int64, caption string) {
	if caption == "" {
		bh.reply(ctx, b, chatID, messages.CaptionUsage())
		return
	}
	if err := bh.users.SetCaption(userID, caption); err != nil {
		bh.log.Errorw("caption save failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not save caption"))
		return
	}
	bh.reply(ctx, b, chatID, messages.CaptionSet(caption))
}

func (bh *Handlers) showCaption(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	user, err := bh.users.GetUser(userID)
	if err != nil {
		bh.log.Errorw("caption lookup failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not load caption"))
		return
	}
	caption := ""
	if user != nil {
		caption = user.Caption
	}
	bh.reply(ctx, b, chatID, messages.CaptionShow(caption))
}

func (bh *Handlers) clearCaption(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	if err := bh.users.SetCaption(userID, ""); err != nil {
		bh.log.Errorw("caption clear failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not clear caption"))
		return
	}
	bh.reply(ctx, b, chatID, messages.CaptionCleared())
}

// setThumb wants the command sent as a reply to a photo; the largest
// size's file id is stored and reused for every upload.
func (bh *Handlers) setThumb(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	reply := update.Message.ReplyToMessage
	if reply == nil || len(reply.Photo) == 0 {
		bh.reply(ctx, b, chatID, messages.ThumbUsage())
		return
	}
	photo := reply.Photo[len(reply.Photo)-1]
	if err := bh.users.SetThumb(userID, photo.FileID); err != nil {
		bh.log.Errorw("thumbnail save failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not save thumbnail"))
		return
	}
	bh.reply(ctx, b, chatID, messages.ThumbSet())
}

func (bh *Handlers) showThumb(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	user, err := bh.users.GetUser(userID)
	if err != nil {
		bh.log.Errorw("thumbnail lookup failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not load thumbnail"))
		return
	}
	if user == nil || user.ThumbFileID == "" {
		bh.reply(ctx, b, chatID, messages.ThumbShowEmpty())
		return
	}
	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo:  &models.InputFileString{Data: user.ThumbFileID},
	})
	if err != nil {
		bh.log.Warnw("thumbnail send failed", "user", userID, "err", err)
	}
}

func (bh *Handlers) delThumb(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	if err := bh.users.SetThumb(userID, ""); err != nil {
		bh.log.Errorw("thumbnail delete failed", "user", userID, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not delete thumbnail"))
		return
	}
	bh.reply(ctx, b, chatID, messages.ThumbCleared())
}

// ban flips another user's ban flag. Only the configured owner may use
// it; everyone else gets silence so the command stays undiscoverable.
func (bh *Handlers) ban(ctx context.Context, b *bot.Bot, chatID, userID int64, args string, banned bool) {
	if bh.ownerID == 0 || userID != bh.ownerID {
		return
	}
	target, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || target == 0 {
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Usage: /ban <user_id>"))
		return
	}
	if err := bh.users.SetBanned(target, banned); err != nil {
		bh.log.Errorw("ban update failed", "target", target, "err", err)
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not update ban"))
		return
	}
	if banned {
		bh.reply(ctx, b, chatID, fmt.Sprintf("🚫 User <code>%d</code> banned.", target))
	} else {
		bh.reply(ctx, b, chatID, fmt.Sprintf("✅ User <code>%d</code> unbanned.", target))
	}
}
