package messages

import (
	"fmt"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func FileLine(fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("📁 <b>Name:</b> <code>%s</code>", Escape(name))
}

func StartWelcome(firstName string) string {
	return fmt.Sprintf("👋 Hello <b>%s</b>!\n\n", Escape(firstName)) +
		"I can upload files up to <b>2 GB</b> to Telegram from any direct URL.\n\n" +
		"Send a URL or use <code>/upload &lt;url&gt;</code> to get started."
}

func HelpText() string {
	return "📋 <b>Bot Commands</b>\n\n" +
		"➤ /start – Check if the bot is alive 🔔\n" +
		"➤ /help – Show this help message ❓\n" +
		"➤ /about – Info about the bot ℹ️\n" +
		"➤ /upload <code>&lt;url&gt;</code> – Upload a file from a URL 📤\n" +
		"➤ /skip – Keep original filename (use after /upload)\n\n" +
		"<b>Caption:</b>\n" +
		"➤ /caption <code>&lt;text&gt;</code> – Set a custom caption 📝\n" +
		"➤ /showcaption – View your current caption\n" +
		"➤ /clearcaption – Remove your custom caption\n\n" +
		"<b>Thumbnail:</b>\n" +
		"➤ /setthumb – Reply to a photo to set thumbnail 🖼️\n" +
		"➤ /showthumb – View your current thumbnail\n" +
		"➤ /delthumb – Delete your saved thumbnail\n\n" +
		"<b>Supported platforms:</b>\n" +
		"YouTube · Instagram · Twitter/X · TikTok · Facebook · Reddit\n" +
		"Vimeo · Dailymotion · Twitch · SoundCloud · Bilibili + more"
}

func AboutText() string {
	return "🤖 <b>URL Uploader Bot</b>\n\n" +
		"Upload files up to <b>2 GB</b> directly to Telegram from any URL.\n\n" +
		"<b>Features:</b>\n" +
		"• ✏️ Rename files before upload\n" +
		"• 🎬 Choose Media or Document upload mode\n" +
		"• 🖼️ Permanent thumbnails\n" +
		"• 📝 Custom captions\n" +
		"• 📊 Live progress with cancel"
}

func Banned() string {
	return "🚫 You are banned from using this bot."
}

func InvalidURL() string {
	return "❌ Please provide a valid URL.\n\nUsage: <code>/upload https://example.com/file.mp4</code>"
}

func TaskInProgress() string {
	return "⚠️ <b>Task already in progress.</b>\nCancel it or wait for it to finish."
}

func RenamePrompt(original string) string {
	return "✏️ <b>Rename file?</b>\n\n" +
		FileLine(original) + "\n\n" +
		"Send the <b>new filename</b> (with extension) or press <b>Skip</b>:"
}

func SelectQuality(fileName string) string {
	return "🎬 <b>Select Resolution:</b>\n" + FileLine(fileName)
}

func SelectMode(fileName string) string {
	return FileLine(fileName) + "\n\nHow should this file be uploaded?"
}

func Analyzing() string {
	return "🔍 <b>Analyzing file info…</b>"
}

func RequestReceived(url string) string {
	return "📥 <b>Request received:</b>\n<code>" + Escape(url) + "</code>\n\nPreparing download…"
}

func UploadComplete() string {
	return "✅ <b>Upload complete!</b>"
}

func ProcessCancelled() string {
	return "❌ <b>Process cancelled by user.</b>"
}

func ProcessFailed(cause string) string {
	return "❌ <b>Error:</b> <code>" + Escape(cause) + "</code>"
}

func CaptionSet(caption string) string {
	return "📝 <b>Caption saved:</b>\n<code>" + Escape(caption) + "</code>"
}

func CaptionShow(caption string) string {
	if caption == "" {
		return "📝 You have no custom caption set.\nUse <code>/caption &lt;text&gt;</code> to set one."
	}
	return "📝 <b>Your caption:</b>\n<code>" + Escape(caption) + "</code>"
}

func CaptionCleared() string {
	return "🗑️ Caption removed."
}

func CaptionUsage() string {
	return "Usage: <code>/caption &lt;text&gt;</code>"
}

func ThumbSet() string {
	return "🖼️ <b>Thumbnail saved.</b> It will be used for your next uploads."
}

func ThumbShowEmpty() string {
	return "🖼️ You have no thumbnail set.\nReply to a photo with /setthumb to save one."
}

func ThumbCleared() string {
	return "🗑️ Thumbnail deleted."
}

func ThumbUsage() string {
	return "Reply to a photo with /setthumb to save it as your thumbnail."
}

func NothingToCancel() string {
	return "💤 Nothing is running right now."
}

// ProgressText renders the same ProgressRecord the web surface polls
// into a chat status message.
func ProgressText(fileName string, rec *types.ProgressRecord) string {
	var b strings.Builder
	b.WriteString("📥 <b>")
	b.WriteString(Escape(rec.Action))
	b.WriteString("</b>\n\n")
	b.WriteString(FileLine(fileName))
	b.WriteString("\n")
	b.WriteString(ProgressBar(rec.Percentage))
	if rec.Current != "" && rec.Total != "" {
		b.WriteString(fmt.Sprintf("\n<b>Done:</b> %s / %s", Escape(rec.Current), Escape(rec.Total)))
	}
	if rec.Speed != "" {
		b.WriteString(fmt.Sprintf("\n<b>Speed:</b> %s", Escape(rec.Speed)))
	}
	return b.String()
}
