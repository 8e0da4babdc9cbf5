package ytdlp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/tgrelay/internal/utils"
)

type videoInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Download extracts the caption first, then fetches the video remuxed to
// mp4. yt-dlp may change the extension, so the result is located by the
// destination's base name.
func (d *YtdlpDownloader) Download(ctx context.Context, url, dest string, progress utils.ProgressFunc) utils.DownloadResult {
	caption := d.caption(ctx, url)
	if ctx.Err() != nil {
		return utils.DownloadResult{Err: ctx.Err().Error()}
	}

	args := d.downloadArgs(url, dest)
	log.Info().Str("op", "ytdlp/download").Msgf("starting yt-dlp download: %s", url)
	tracker := newProgressTracker(progress)
	res, err := d.runner.Stream(ctx, tracker.line, "yt-dlp", args...)
	if err != nil {
		log.Error().Str("op", "ytdlp/download").Err(err).Msg("error in yt-dlp download")
		return utils.DownloadResult{Err: err.Error()}
	}
	if !res.OK() {
		msg := res.ErrText("Unknown error")
		log.Error().Str("op", "ytdlp/download").Msgf("yt-dlp download failed: %s", msg)
		return utils.DownloadResult{Err: msg}
	}
	actual := d.findDownloaded(filepath.Dir(dest), filepath.Base(dest))
	if actual == "" {
		return utils.DownloadResult{Err: "Downloaded file not found"}
	}
	log.Info().Str("op", "ytdlp/download").Msgf("successfully downloaded: %s", actual)
	return utils.DownloadResult{OK: true, Path: actual, Title: caption}
}

func (d *YtdlpDownloader) caption(ctx context.Context, url string) string {
	args := []string{"--dump-json", "--no-warnings", "--no-playlist"}
	args = append(args, d.cookieArgs()...)
	args = append(args, url)
	res, err := d.runner.Run(ctx, "yt-dlp", args...)
	if err != nil || res.Stdout == "" {
		log.Info().Str("op", "ytdlp/download").Msg("could not extract video title")
		return ""
	}
	var info videoInfo
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		log.Warn().Str("op", "ytdlp/download").Msg("could not parse video info JSON")
		return ""
	}
	caption := BuildCaption(info.Title, info.Description)
	if caption != "" {
		log.Info().Str("op", "ytdlp/download").Msgf("extracted video title: %s", caption)
	}
	return caption
}

// BuildCaption joins title and description unless the title already holds
// the description, then enforces the caption length.
func BuildCaption(title, description string) string {
	title = utils.CollapseSpaces(title)
	if title == "" {
		return ""
	}
	description = utils.CollapseSpaces(description)
	if description != "" && !strings.Contains(title, description) {
		title = title + " - " + description
	}
	return utils.Truncate(title, utils.CaptionLimit)
}

func (d *YtdlpDownloader) downloadArgs(url, dest string) []string {
	args := []string{
		"-o", dest,
		"--no-warnings",
		"--no-playlist",
		"--prefer-free-formats",
		"--remux-video", "mp4",
		"--no-check-certificates",
		"--retries", "5",
		"--fragment-retries", "5",
	}
	args = append(args, d.cookieArgs()...)
	if d.useAria2 {
		args = append(args,
			"--external-downloader", "aria2c",
			"--external-downloader-args", "aria2c:--max-connection-per-server=16 --split=16 --min-split-size=1M --check-certificate=false",
		)
	}
	return append(args, "--newline", "--progress", url)
}

func (d *YtdlpDownloader) findDownloaded(dir, base string) string {
	prefix := strings.TrimSuffix(base, filepath.Ext(base))
	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && !strings.HasSuffix(e.Name(), ".part") {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

type progressTracker struct {
	progress utils.ProgressFunc
	last     float64
}

func newProgressTracker(progress utils.ProgressFunc) *progressTracker {
	return &progressTracker{progress: progress}
}

// line reports "[download]  42.0%" lines once they advance five points.
func (p *progressTracker) line(line string) {
	if p.progress == nil {
		return
	}
	m := utils.DownloadPercentRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct-p.last < 5 {
		return
	}
	p.last = pct
	p.progress(int64(pct), 100)
}
