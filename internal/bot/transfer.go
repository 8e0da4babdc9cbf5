package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/uploader"
	"github.com/tanq16/tgrelay/internal/utils"
)

var errEmptyGroup = errors.New("could not extract any valid media from the media group")

// sizeLimitError rejects a source file bigger than the user identity may fetch.
type sizeLimitError struct {
	size, limit int64
}

func (e *sizeLimitError) Error() string {
	return fmt.Sprintf("file of %s exceeds the %s download limit",
		utils.FormatBytes(uint64(e.size)), utils.FormatBytes(uint64(e.limit)))
}

func (b *Bot) downloadPost(ctx context.Context, in telegram.Incoming, raw string) error {
	defer utils.RemoveJobDir(b.settings.DownloadDir, in.MessageID)
	link, err := telegram.ParsePostLink(raw)
	if err != nil {
		b.reply(ctx, in.ChatID, fmt.Sprintf("**❌ %v**", err))
		return err
	}
	msg, err := b.source.FetchMessage(ctx, link.Chat, link.MessageID)
	if err != nil {
		b.replyError(ctx, in.ChatID, err)
		return err
	}
	if link.Topic != 0 && !telegram.BelongsToTopic(msg, link.Topic) {
		b.reply(ctx, in.ChatID, fmt.Sprintf("**❌ Message %d does not belong to topic %d or has been deleted.**\n**Original URL:** %s",
			link.MessageID, link.Topic, raw))
		return nil
	}
	if err := b.transfer(ctx, in.ChatID, in.MessageID, msg); err != nil {
		b.replyError(ctx, in.ChatID, err)
		return err
	}
	return nil
}

// transfer copies one fetched post into dest. jobID scopes the scratch
// directory used for downloads.
func (b *Bot) transfer(ctx context.Context, dest int64, jobID int, msg *telegram.Message) error {
	if msg == nil || msg.Empty {
		return utils.ErrNoMedia
	}
	if err := b.checkSize(msg); err != nil {
		return err
	}
	switch {
	case msg.GroupID != 0:
		return b.transferGroup(ctx, dest, jobID, msg)
	case msg.HasMedia():
		return b.transferMedia(ctx, dest, jobID, msg)
	case msg.HasText():
		_, err := b.sender.SendText(ctx, dest, msg.Body())
		return err
	default:
		return utils.ErrNoMedia
	}
}

func (b *Bot) checkSize(msg *telegram.Message) error {
	switch msg.Kind {
	case utils.KindVideo, utils.KindAudio, utils.KindDocument:
	default:
		return nil
	}
	limit := int64(utils.DefaultSizeCeiling)
	if b.source.IsPremium() {
		limit = utils.PremiumSizeCeiling
	}
	if msg.FileSize > limit {
		return &sizeLimitError{size: msg.FileSize, limit: limit}
	}
	return nil
}

func (b *Bot) transferMedia(ctx context.Context, dest int64, jobID int, msg *telegram.Message) error {
	status := output.NewStatus(ctx, b.sender, dest, "**📥 Downloading Progress...**")
	defer status.Delete(context.WithoutCancel(ctx))

	art, err := b.fetchMedia(ctx, jobID, msg, mediaName(msg), status.Bytes(ctx, "📥 Downloading Progress"))
	if err != nil {
		return err
	}
	up := b.uploader.WithProgress(status.Bytes(ctx, "📤 Uploading Progress"))
	if art.Kind == utils.KindVideo && art.Size > b.settings.SizeCeiling {
		status.Set(ctx, "**✂️ Splitting large video...**")
		plan, err := b.splitter.SplitVideo(ctx, art, b.settings.SizeCeiling)
		if err == nil && !plan.Empty() {
			art.Remove()
			outcomes := up.UploadParts(ctx, dest, plan, func(i, n int) string {
				return postPartCaption(msg.Caption, i, n)
			})
			return firstError(outcomes)
		}
		if ctx.Err() != nil {
			art.Remove()
			return ctx.Err()
		}
		log.Warn().Str("op", "bot/transfer").Msgf("video split failed, uploading %s as is: %v", art.Path, err)
	}
	return up.UploadOne(ctx, dest, art, msg.Caption)
}

func (b *Bot) transferGroup(ctx context.Context, dest int64, jobID int, msg *telegram.Message) error {
	members, err := b.source.MediaGroup(ctx, msg)
	if err != nil {
		return err
	}
	status := output.NewStatus(ctx, b.sender, dest, "**📥 Downloading media group...**")
	defer status.Delete(context.WithoutCancel(ctx))

	var items []uploader.GroupItem
	dropAll := func() {
		for _, item := range items {
			item.Artifact.Remove()
		}
	}
	for i, m := range members {
		if !m.HasMedia() {
			continue
		}
		if err := b.checkSize(m); err != nil {
			log.Warn().Str("op", "bot/transfer").Msgf("skipping group item %d: %v", m.ID, err)
			continue
		}
		name := groupItemName(m, i+1)
		label := fmt.Sprintf("📥 Downloading Progress (%d/%d)", i+1, len(members))
		art, err := b.fetchMedia(ctx, jobID, m, name, status.Bytes(ctx, label))
		if err != nil {
			if ctx.Err() != nil {
				dropAll()
				return ctx.Err()
			}
			log.Error().Str("op", "bot/transfer").Msgf("error downloading group item %d: %v", m.ID, err)
			continue
		}
		if art.Kind == utils.KindVideo && art.Size > b.settings.SizeCeiling {
			status.Set(ctx, fmt.Sprintf("**✂️ Splitting large video %d...**", i+1))
			plan, err := b.splitter.SplitVideo(ctx, art, b.settings.SizeCeiling)
			if err == nil && !plan.Empty() {
				art.Remove()
				for j, part := range plan.Parts {
					items = append(items, uploader.GroupItem{Artifact: part, Caption: uploader.PartCaption(m.Caption, j+1, len(plan.Parts))})
				}
				continue
			}
			if ctx.Err() != nil {
				art.Remove()
				dropAll()
				return ctx.Err()
			}
			log.Warn().Str("op", "bot/transfer").Msgf("video split failed, keeping %s whole: %v", art.Path, err)
		}
		items = append(items, uploader.GroupItem{Artifact: art, Caption: m.Caption})
	}
	if len(items) == 0 {
		return errEmptyGroup
	}
	status.Set(ctx, fmt.Sprintf("**📤 Uploading %d item(s)...**", len(items)))
	outcomes := b.uploader.UploadGroup(ctx, dest, items)
	if uploader.Failed(outcomes) == len(outcomes) {
		return fmt.Errorf("failed to send media group: %w", firstError(outcomes))
	}
	return nil
}

// fetchMedia downloads a post's file into the job directory.
func (b *Bot) fetchMedia(ctx context.Context, jobID int, msg *telegram.Message, name string, progress utils.ProgressFunc) (utils.LocalArtifact, error) {
	path, err := utils.JobPath(b.settings.DownloadDir, jobID, utils.UniqueName(name, b.now()))
	if err != nil {
		return utils.LocalArtifact{}, err
	}
	got, err := b.source.DownloadMedia(ctx, msg, path, progress)
	if err != nil {
		utils.RemoveQuietly(path)
		return utils.LocalArtifact{}, err
	}
	size, err := utils.FileSize(got)
	if err != nil {
		return utils.LocalArtifact{}, fmt.Errorf("error reading downloaded file: %v", err)
	}
	return utils.LocalArtifact{Path: got, Size: size, Kind: msg.Kind}, nil
}

func mediaName(m *telegram.Message) string {
	if name := utils.SanitizeFileName(filepath.Base(m.FileName)); name != "" {
		return name
	}
	return fmt.Sprintf("%d%s", m.ID, media.ExtensionFor(m.Kind, m.MimeType))
}

// groupItemName keeps album members apart when they share a file name.
func groupItemName(m *telegram.Message, index int) string {
	name := mediaName(m)
	ext := filepath.Ext(name)
	if ext == "" {
		ext = media.ExtensionFor(m.Kind, m.MimeType)
	}
	return fmt.Sprintf("%s_item%d%s", strings.TrimSuffix(name, filepath.Ext(name)), index, ext)
}

func postPartCaption(caption string, i, n int) string {
	if caption == "" {
		return fmt.Sprintf("**Part %d of %d**", i, n)
	}
	return uploader.PartCaption(caption, i, n)
}

func firstError(outcomes []uploader.UploadOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// replyError maps a transfer failure to the chat reply. Cancellation stays
// silent since /killall already answered.
func (b *Bot) replyError(ctx context.Context, chat int64, err error) {
	var text string
	switch {
	case isCancelled(err):
		return
	case telegram.IsPeerError(err):
		text = "**Make sure the user client is part of the chat.**"
	case errors.Is(err, utils.ErrNoMedia):
		text = "**No media or text found in the post URL.**"
	case errors.Is(err, errEmptyGroup):
		text = "**Could not extract any valid media from the media group.**"
	default:
		text = fmt.Sprintf("**❌ %v**", err)
	}
	b.reply(ctx, chat, text)
}
