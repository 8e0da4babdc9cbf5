package aria2

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
)

func (d *Aria2Downloader) Download(ctx context.Context, url, dest string, progress utils.ProgressFunc) utils.DownloadResult {
	args := buildArgs(url, dest, d.jar)
	log.Info().Str("op", "aria2/download").Msgf("starting aria2c download: %s", url)
	tracker := newPercentTracker(progress)
	res, err := d.runner.Stream(ctx, tracker.line, "aria2c", args...)
	if err != nil {
		log.Error().Str("op", "aria2/download").Err(err).Msg("error in aria2c download")
		return utils.DownloadResult{Err: err.Error()}
	}
	if !res.OK() {
		msg := res.ErrText("Unknown error")
		log.Error().Str("op", "aria2/download").Msgf("aria2c download failed: %s", msg)
		return utils.DownloadResult{Err: msg}
	}
	log.Info().Str("op", "aria2/download").Msgf("successfully downloaded: %s", filepath.Base(dest))
	return utils.DownloadResult{OK: true, Path: dest}
}
