package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/akilaramal69-beep/telelinkworking/internal/messages"
	"github.com/akilaramal69-beep/telelinkworking/internal/selector"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Pipeline is the controller surface the chat front-end drives.
type Pipeline interface {
	Formats(ctx context.Context, url string) (*types.FormatQueryResult, error)
	Submit(task *types.Task) error
	Cancel(userID int64) bool
	Busy(userID int64) bool
}

type stage int

const (
	stageRename stage = iota
	stageQuality
	stageMode
)

// pending is one user's half-built request while the bot walks them
// through rename, quality and mode prompts.
type pending struct {
	url      string
	filename string
	renamed  bool
	title    string
	formats  []types.FormatDescriptor
	formatID string
	stage    stage
}

type Handlers struct {
	pipeline Pipeline
	users    types.UserStore
	ownerID  int64
	log      *zap.SugaredLogger

	mu      sync.Mutex
	pending map[int64]*pending
}

func NewHandlers(pipeline Pipeline, users types.UserStore, ownerID int64, log *zap.SugaredLogger) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		users:    users,
		ownerID:  ownerID,
		log:      log,
		pending:  make(map[int64]*pending),
	}
}

// MainHandler dispatches every update the bot receives.
func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		bh.handleCallback(ctx, b, update)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	if bh.users != nil {
		if banned, err := bh.users.IsBanned(userID); err == nil && banned {
			bh.reply(ctx, b, update.Message.Chat.ID, messages.Banned())
			return
		}
		bh.rememberUser(update.Message.From)
	}

	text := strings.TrimSpace(update.Message.Text)
	if strings.HasPrefix(text, "/") {
		bh.handleCommand(ctx, b, update, text)
		return
	}
	bh.handleText(ctx, b, update, text)
}

func (bh *Handlers) rememberUser(from *models.User) {
	err := bh.users.UpsertUser(types.User{UserID: from.ID, Username: from.Username})
	if err != nil {
		bh.log.Warnw("user upsert failed", "user", from.ID, "err", err)
	}
}

func (bh *Handlers) handleCommand(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "/start":
		bh.reply(ctx, b, chatID, messages.StartWelcome(update.Message.From.FirstName))
	case "/help":
		bh.reply(ctx, b, chatID, messages.HelpText())
	case "/about":
		bh.reply(ctx, b, chatID, messages.AboutText())
	case "/upload":
		bh.beginFlow(ctx, b, chatID, userID, args)
	case "/skip":
		bh.resolveRename(ctx, b, chatID, userID, "")
	case "/cancel":
		if bh.clearPending(userID) || bh.pipeline.Cancel(userID) {
			bh.reply(ctx, b, chatID, messages.ProcessCancelled())
		} else {
			bh.reply(ctx, b, chatID, messages.NothingToCancel())
		}
	case "/caption":
		bh.setCaption(ctx, b, chatID, userID, args)
	case "/showcaption":
		bh.showCaption(ctx, b, chatID, userID)
	case "/clearcaption":
		bh.clearCaption(ctx, b, chatID, userID)
	case "/setthumb":
		bh.setThumb(ctx, b, update)
	case "/showthumb":
		bh.showThumb(ctx, b, chatID, userID)
	case "/delthumb":
		bh.delThumb(ctx, b, chatID, userID)
	case "/ban":
		bh.ban(ctx, b, chatID, userID, args, true)
	case "/unban":
		bh.ban(ctx, b, chatID, userID, args, false)
	default:
		bh.reply(ctx, b, chatID, messages.HelpText())
	}
}

// handleText is a bare URL or the answer to a rename prompt.
func (bh *Handlers) handleText(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	bh.mu.Lock()
	p, waiting := bh.pending[userID]
	bh.mu.Unlock()

	if waiting && p.stage == stageRename {
		bh.resolveRename(ctx, b, chatID, userID, text)
		return
	}
	bh.beginFlow(ctx, b, chatID, userID, text)
}

// beginFlow validates the URL, probes its qualities and opens the
// rename prompt.
func (bh *Handlers) beginFlow(ctx context.Context, b *bot.Bot, chatID, userID int64, url string) {
	if _, err := selector.Validate(url); err != nil {
		bh.reply(ctx, b, chatID, messages.InvalidURL())
		return
	}
	if bh.pipeline.Busy(userID) {
		bh.reply(ctx, b, chatID, messages.TaskInProgress())
		return
	}

	probing, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.Analyzing(),
		ParseMode: messages.ParseModeHTML,
	})

	res, err := bh.pipeline.Formats(ctx, url)
	if probing != nil {
		_, _ = b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: probing.ID})
	}
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ProcessFailed("Could not analyze this URL"))
		return
	}

	p := &pending{url: url, stage: stageRename}
	if res != nil {
		p.title = res.Title
		p.formats = res.Formats
	}
	p.filename = defaultFilename(url, p.title, len(p.formats) > 0)

	bh.mu.Lock()
	bh.pending[userID] = p
	bh.mu.Unlock()

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.RenamePrompt(p.filename),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: skipKeyboard(),
	})
	if err != nil {
		bh.log.Warnw("rename prompt failed", "user", userID, "err", err)
	}
}

// resolveRename accepts the user's filename (empty keeps the default)
// and moves on to quality or mode selection.
func (bh *Handlers) resolveRename(ctx context.Context, b *bot.Bot, chatID, userID int64, name string) {
	bh.mu.Lock()
	p, ok := bh.pending[userID]
	if !ok || p.stage != stageRename {
		bh.mu.Unlock()
		bh.reply(ctx, b, chatID, messages.InvalidURL())
		return
	}
	if name != "" {
		p.filename = selector.SanitizeFilename(name)
		p.renamed = true
	}
	if len(p.formats) > 0 {
		p.stage = stageQuality
	} else {
		p.stage = stageMode
	}
	bh.mu.Unlock()

	if p.stage == stageQuality {
		_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        messages.SelectQuality(p.filename),
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: qualityKeyboard(p.formats),
		})
		return
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.SelectMode(p.filename),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: modeKeyboard(),
	})
}

func (bh *Handlers) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})

	chatID := callbackChatID(update)
	if chatID == 0 {
		return
	}
	userID := cq.From.ID
	data := strings.TrimSpace(cq.Data)

	switch {
	case data == "skip":
		bh.deleteCallbackMessage(ctx, b, update)
		bh.resolveRename(ctx, b, chatID, userID, "")
	case strings.HasPrefix(data, "q|"):
		bh.deleteCallbackMessage(ctx, b, update)
		bh.resolveQuality(ctx, b, chatID, userID, strings.TrimPrefix(data, "q|"))
	case strings.HasPrefix(data, "m|"):
		bh.deleteCallbackMessage(ctx, b, update)
		bh.resolveMode(ctx, b, chatID, userID, strings.TrimPrefix(data, "m|"))
	case data == "cancel_task":
		bh.clearPending(userID)
		bh.pipeline.Cancel(userID)
	}
}

// resolveQuality stores the chosen format and submits right away;
// extracted media is always sent as media, so no mode prompt follows.
func (bh *Handlers) resolveQuality(ctx context.Context, b *bot.Bot, chatID, userID int64, formatID string) {
	bh.mu.Lock()
	p, ok := bh.pending[userID]
	if !ok || p.stage != stageQuality {
		bh.mu.Unlock()
		return
	}
	p.formatID = formatID
	delete(bh.pending, userID)
	bh.mu.Unlock()

	bh.submit(ctx, b, chatID, userID, p, types.ModeMedia)
}

func (bh *Handlers) resolveMode(ctx context.Context, b *bot.Bot, chatID, userID int64, mode string) {
	bh.mu.Lock()
	p, ok := bh.pending[userID]
	if !ok || p.stage != stageMode {
		bh.mu.Unlock()
		return
	}
	delete(bh.pending, userID)
	bh.mu.Unlock()

	p.formatID = types.FormatDirect
	bh.submit(ctx, b, chatID, userID, p, types.ParseUploadMode(mode))
}

func (bh *Handlers) submit(ctx context.Context, b *bot.Bot, chatID, userID int64, p *pending, mode types.UploadMode) {
	task := &types.Task{
		UserID:         userID,
		ChatID:         chatID,
		SourceURL:      p.url,
		FormatID:       p.formatID,
		Mode:           mode,
		TargetFilename: p.filename,
		Renamed:        p.renamed,
	}
	if err := bh.pipeline.Submit(task); err != nil {
		if errors.Is(err, types.ErrTaskInProgress) {
			bh.reply(ctx, b, chatID, messages.TaskInProgress())
			return
		}
		bh.reply(ctx, b, chatID, messages.ProcessFailed(err.Error()))
	}
}

func (bh *Handlers) clearPending(userID int64) bool {
	bh.mu.Lock()
	defer bh.mu.Unlock()
	if _, ok := bh.pending[userID]; ok {
		delete(bh.pending, userID)
		return true
	}
	return false
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		bh.log.Warnw("send message failed", "chat", chatID, "err", err)
	}
}

func (bh *Handlers) deleteCallbackMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq.Message.Message == nil {
		return
	}
	_, _ = b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    cq.Message.Message.Chat.ID,
		MessageID: cq.Message.Message.ID,
	})
}

func callbackChatID(update *models.Update) int64 {
	cq := update.CallbackQuery
	if cq.Message.Message != nil {
		return cq.Message.Message.Chat.ID
	}
	if cq.Message.InaccessibleMessage != nil {
		return cq.Message.InaccessibleMessage.Chat.ID
	}
	return 0
}

// defaultFilename picks the extractor's title for media and the URL
// basename for plain files.
func defaultFilename(url, title string, extracted bool) string {
	if extracted && title != "" {
		return selector.SanitizeFilename(title) + ".mp4"
	}
	return selector.FilenameFromURL(url)
}

func skipKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⏭️ Skip", CallbackData: "skip"}},
		},
	}
}

// qualityKeyboard lays the options out two per row, best first, with a
// shortcut for the top entry.
func qualityKeyboard(formats []types.FormatDescriptor) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, f := range formats {
		label := f.Resolution
		if f.Filesize > 0 {
			label = fmt.Sprintf("%s (%s)", f.Resolution, messages.HumanBytes(f.Filesize))
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         label,
			CallbackData: "q|" + f.FormatID,
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "🏆 Best Quality", CallbackData: "q|" + types.FormatBest},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func modeKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🎬 Media", CallbackData: "m|media"},
				{Text: "📄 Document", CallbackData: "m|doc"},
			},
		},
	}
}
