package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/downloaders/s3"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/scheduler"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/uploader"
	"github.com/tanq16/tgrelay/internal/utils"
)

// downloadError is a download tool failure, reported differently from
// errors that happen after the file is on disk.
type downloadError struct {
	msg string
}

func (e *downloadError) Error() string {
	return e.msg
}

// linkFlavor holds the wording and naming that differ between /l and /yl.
type linkFlavor struct {
	noun         string
	archiveLabel string
	video        bool
}

var (
	fileFlavor  = linkFlavor{noun: "file", archiveLabel: "Archive Part"}
	videoFlavor = linkFlavor{noun: "video", archiveLabel: "Video Archive Part", video: true}
)

func (f linkFlavor) usage() string {
	if f.video {
		return "**Usage:** `/yl url1 url2 ...`\nDownloads each video with yt-dlp and uploads it here."
	}
	return "**Usage:** `/l url1 url2 ...`\nDownloads each file with aria2c (or the S3 API for s3:// links) and uploads it here."
}

// fetchLinks downloads every URL in args and uploads the results in order.
func (b *Bot) fetchLinks(ctx context.Context, in telegram.Incoming, args string, video bool) error {
	flavor := fileFlavor
	if video {
		flavor = videoFlavor
	}
	urls := strings.Fields(args)
	if len(urls) == 0 {
		b.reply(ctx, in.ChatID, flavor.usage())
		return nil
	}
	defer utils.RemoveJobDir(b.settings.DownloadDir, in.MessageID)

	status := output.NewStatus(ctx, b.sender, in.ChatID, fmt.Sprintf("**🔍 Processing %s links...**", flavor.noun))
	jobs := make([]utils.TransferJob, len(urls))
	for i, u := range urls {
		jobs[i] = utils.TransferJob{ID: uuid.New().String(), Source: u, Destination: in.ChatID}
	}
	errs := scheduler.Run(ctx, jobs, b.settings.URLWorkers, func(jctx context.Context, i int, job utils.TransferJob) error {
		return b.fetchLink(jctx, in, status, flavor, i+1, len(jobs), job)
	})
	bg := context.WithoutCancel(ctx)
	for i, err := range errs {
		if err == nil || isCancelled(err) {
			continue
		}
		var dlErr *downloadError
		if errors.As(err, &dlErr) {
			b.reply(bg, in.ChatID, fmt.Sprintf("❌ **Failed to download %s %d:**\n%s", flavor.noun, i+1, dlErr.msg))
		} else {
			b.reply(bg, in.ChatID, fmt.Sprintf("❌ **Error with %s %d:** %v", flavor.noun, i+1, err))
		}
	}
	status.Delete(bg)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	b.reply(ctx, in.ChatID, fmt.Sprintf("✅ **Completed processing %d %s(s)**", len(urls), linkNoun(flavor)))
	return nil
}

func linkNoun(f linkFlavor) string {
	if f.video {
		return "video"
	}
	return "link"
}

func (b *Bot) fetchLink(ctx context.Context, in telegram.Incoming, status *output.Status, flavor linkFlavor, index, total int, job utils.TransferJob) error {
	status.Set(ctx, fmt.Sprintf("**📥 Downloading %s %d/%d...**\n%s", flavor.noun, index, total, shortURL(job.Source)))

	var name string
	var dl utils.Downloader
	var progress utils.ProgressFunc
	if flavor.video {
		name = fmt.Sprintf("video_%s.mp4", b.now().Format(utils.TimestampLayout))
		dl = b.links.Video
		progress = status.Percent(ctx, "📥 Downloading")
	} else {
		name = utils.NameFromURL(job.Source, b.now())
		dl = b.links.ForLink(job.Source)
		progress = status.Percent(ctx, "📥 Downloading")
		if s3.IsS3URL(job.Source) {
			progress = status.Bytes(ctx, "📥 Downloading")
		}
	}
	if dl == nil {
		return fmt.Errorf("no downloader configured for %s", job.Source)
	}
	// Each URL gets its own directory so concurrent jobs never share names.
	dest, err := utils.JobPath(filepath.Join(b.settings.DownloadDir, fmt.Sprint(in.MessageID)), index, name)
	if err != nil {
		return err
	}
	res := dl.Download(ctx, job.Source, dest, progress)
	if !res.OK {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &downloadError{msg: res.Err}
	}
	size, err := utils.FileSize(res.Path)
	if err != nil {
		return fmt.Errorf("error reading downloaded file: %v", err)
	}
	fileName := filepath.Base(res.Path)
	caption := fmt.Sprintf("**%s**", fileName)
	if flavor.video && res.Title != "" {
		caption = fmt.Sprintf("**%s**", res.Title)
	}
	art := utils.LocalArtifact{Path: res.Path, Size: size, Kind: utils.KindDocument}
	if media.IsVideo(res.Path) {
		art.Kind = utils.KindVideo
	}
	up := b.uploader.WithProgress(status.Bytes(ctx, "📤 Uploading"))

	if size > b.settings.SizeCeiling {
		limit := utils.FormatBytes(uint64(b.settings.SizeCeiling))
		if art.Kind == utils.KindVideo {
			status.Set(ctx, fmt.Sprintf("**✂️ Video over %s, splitting...**", limit))
		} else {
			status.Set(ctx, fmt.Sprintf("**✂️ File over %s, splitting with 7zip...**", limit))
		}
		plan, err := b.splitter.Split(ctx, art, b.settings.SizeCeiling)
		if err == nil && !plan.Empty() {
			art.Remove()
			captionFor := uploader.Captions(caption, plan.Strategy, flavor.archiveLabel)
			if art.Kind != utils.KindVideo {
				captionFor = func(i, n int) string { return uploader.PartCaption(caption, i, n) }
			}
			return firstError(up.UploadParts(ctx, in.ChatID, plan, captionFor))
		}
		if ctx.Err() != nil {
			art.Remove()
			return ctx.Err()
		}
		log.Warn().Str("op", "bot/urls").Msgf("split of %s failed, uploading as is: %v", fileName, err)
	}
	status.Set(ctx, fmt.Sprintf("**📤 Uploading %s %d/%d...**", flavor.noun, index, total))
	return up.UploadOne(ctx, in.ChatID, art, caption)
}

func shortURL(u string) string {
	runes := []rune(u)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes) + "..."
}
