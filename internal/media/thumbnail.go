package media

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

// Thumbnail extracts a representative frame from the middle of a video. A
// zero duration is probed first and falls back to a short default clip.
func (t *Toolkit) Thumbnail(ctx context.Context, video string, duration int) (string, error) {
	if err := os.MkdirAll(t.thumbDir, 0755); err != nil {
		return "", fmt.Errorf("error creating thumbnail directory: %v", err)
	}
	if duration <= 0 {
		if info, err := t.Probe(ctx, video); err == nil {
			duration = info.Duration
		}
	}
	if duration <= 0 {
		duration = utils.DefaultThumbSeconds
	}
	output := filepath.Join(t.thumbDir, fmt.Sprintf("thumb_%s.jpg", uuid.New().String()))
	res, err := tools.RunWithTimeout(ctx, t.runner, utils.ThumbnailTimeout, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprint(duration/2), "-i", video,
		"-vf", "thumbnail", "-q:v", "1", "-frames:v", "1",
		"-threads", fmt.Sprint(t.threads), "-y", output,
	)
	if err != nil {
		utils.RemoveQuietly(output)
		return "", fmt.Errorf("thumbnail generation failed: %v", err)
	}
	if !res.OK() {
		log.Error().Str("op", "media/thumbnail").Msgf("ffmpeg error: %s", res.Stderr)
		utils.RemoveQuietly(output)
		return "", fmt.Errorf("ffmpeg error: %s", res.ErrText("unknown error"))
	}
	size, err := utils.FileSize(output)
	if err != nil {
		return "", fmt.Errorf("thumbnail file not created: %s", output)
	}
	if size == 0 {
		utils.RemoveQuietly(output)
		return "", fmt.Errorf("thumbnail file is empty: %s", output)
	}
	return output, nil
}

// Dimensions reads width and height from an image header.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("error decoding image header: %v", err)
	}
	return cfg.Width, cfg.Height, nil
}
