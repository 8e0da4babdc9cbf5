package bot

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/stats"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/utils"
)

const cookieUsage = "**🍪 Cookie Manager**\n\n" +
	"Send `/ck` followed by the contents of a Netscape format cookies.txt file.\n" +
	"The cookies are used by yt-dlp and aria2c for sites that need a login."

func (b *Bot) saveCookies(ctx context.Context, in telegram.Incoming, args string) {
	if args == "" {
		b.reply(ctx, in.ChatID, cookieUsage)
		return
	}
	if err := b.cookies.Save(args); err != nil {
		log.Error().Str("op", "bot/admin").Msgf("error saving cookies: %v", err)
		b.reply(ctx, in.ChatID, "❌ **Failed to save cookies. Please check the format.**")
		return
	}
	b.reply(ctx, in.ChatID, "✅ **Cookies saved successfully!**\nThey will be used for YouTube downloads.")
}

func (b *Bot) sendStats(ctx context.Context, in telegram.Incoming) {
	if b.stats == nil {
		b.reply(ctx, in.ChatID, "**Host statistics are unavailable.**")
		return
	}
	b.reply(ctx, in.ChatID, stats.Render(b.stats.Collect(ctx)))
}

// sendLogs uploads the log file as a document. The file stays on disk.
func (b *Bot) sendLogs(ctx context.Context, in telegram.Incoming) {
	path := b.settings.LogFile
	if path == "" || !utils.FileExists(path) {
		b.reply(ctx, in.ChatID, "**Not exists**")
		return
	}
	item := utils.UploadDescriptor{
		Kind:     utils.KindDocument,
		Path:     path,
		Caption:  "**Logs**",
		FileName: filepath.Base(path),
	}
	if err := b.sender.SendMedia(ctx, in.ChatID, item, nil); err != nil {
		log.Error().Str("op", "bot/admin").Msgf("error sending log file: %v", err)
		b.reply(ctx, in.ChatID, "**❌ Could not send the log file.**")
	}
}
