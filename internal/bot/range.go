package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/batch"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/utils"
)

const batchUsage = "🚀 **Batch Download Process**\n" +
	"`/bdl start_link end_link`\n\n" +
	"💡 **Example:**\n" +
	"`/bdl https://t.me/mychannel/100 https://t.me/mychannel/120`\n\n" +
	"For forum topics use links like `https://t.me/c/123456/7/100`."

// parseRange validates the two links of /bdl. The returned string is the
// reply to send when validation fails.
func parseRange(args string) (telegram.PostLink, telegram.PostLink, string) {
	fields := strings.Fields(args)
	if len(fields) != 2 || !telegram.IsPostLink(fields[0]) || !telegram.IsPostLink(fields[1]) {
		return telegram.PostLink{}, telegram.PostLink{}, batchUsage
	}
	start, err := telegram.ParsePostLink(fields[0])
	if err == nil {
		var end telegram.PostLink
		end, err = telegram.ParsePostLink(fields[1])
		if err == nil {
			switch {
			case start.Chat != end.Chat:
				return start, end, "**❌ Both links must be from the same channel.**"
			case start.Topic != end.Topic:
				return start, end, "**❌ Both links must be from the same topic thread.**"
			case start.MessageID > end.MessageID:
				return start, end, "**❌ Invalid range: start ID cannot exceed end ID.**"
			}
			return start, end, ""
		}
	}
	return telegram.PostLink{}, telegram.PostLink{}, fmt.Sprintf("**❌ Error parsing links:\n%v**", err)
}

func (b *Bot) batchDownload(ctx context.Context, in telegram.Incoming, args string) {
	start, end, problem := parseRange(args)
	if problem != "" {
		b.reply(ctx, in.ChatID, problem)
		return
	}
	b.runTask(ctx, "bdl", func(tctx context.Context) error {
		return b.runBatch(tctx, in, start, end)
	})
}

func (b *Bot) runBatch(ctx context.Context, in telegram.Incoming, start, end telegram.PostLink) error {
	defer utils.RemoveJobDir(b.settings.DownloadDir, in.MessageID)
	bg := context.WithoutCancel(ctx)
	rng := utils.BatchRange{
		ChatRef: start.Chat,
		TopicID: start.Topic,
		StartID: start.MessageID,
		EndID:   end.MessageID,
	}

	var ids []int
	var status *output.Status
	var header string
	if start.Topic != 0 {
		status = output.NewStatus(ctx, b.sender, in.ChatID, fmt.Sprintf("🔍 **Getting message IDs from topic %d...**", start.Topic))
		var err error
		ids, err = b.source.TopicMessageIDs(ctx, start.Chat, start.Topic, start.MessageID, end.MessageID)
		if err != nil {
			status.Delete(bg)
			b.replyError(bg, in.ChatID, err)
			return err
		}
		if len(ids) == 0 {
			status.Delete(bg)
			b.reply(ctx, in.ChatID, fmt.Sprintf("**❌ No messages found in topic %d between %d and %d.**\nMake sure the user session can read the chat.",
				start.Topic, start.MessageID, end.MessageID))
			return nil
		}
		header = fmt.Sprintf("📥 **Downloading %d forum topic %d posts %d–%d…**", len(ids), start.Topic, start.MessageID, end.MessageID)
		status.Set(ctx, header)
	} else {
		ids = batch.Interval(start.MessageID, end.MessageID)
		header = fmt.Sprintf("📥 **Downloading posts %d–%d…**", start.MessageID, end.MessageID)
		status = output.NewStatus(ctx, b.sender, in.ChatID, header)
	}

	drv := batch.NewDriver(b.source, func(tctx context.Context, msg *telegram.Message) error {
		return b.transfer(tctx, in.ChatID, in.MessageID, msg)
	})
	drv.Delay = b.settings.BatchDelay
	drv.Progress = func(r *utils.BatchRange, processed int) {
		status.Set(ctx, fmt.Sprintf("%s\n**%d/%d** processed, `%d` downloaded, `%d` skipped.",
			header, processed, r.Total, r.Downloaded, r.Skipped))
	}
	result := drv.Run(ctx, rng, ids)
	if result.Cancelled {
		log.Info().Str("op", "bot/range").Msgf("batch for %d cancelled after %d posts", in.ChatID, result.Downloaded)
	}

	status.Delete(bg)
	b.reply(bg, in.ChatID, batch.Summary(result))
	if result.Cancelled {
		return context.Canceled
	}
	return nil
}
