package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/tools"
)

type Info struct {
	Duration int
	Artist   string
	Title    string
}

// Toolkit wraps ffprobe and ffmpeg for metadata and thumbnails.
type Toolkit struct {
	runner   tools.Runner
	thumbDir string
	threads  int
}

func NewToolkit(runner tools.Runner, thumbDir string) *Toolkit {
	return &Toolkit{
		runner:   runner,
		thumbDir: thumbDir,
		threads:  max(1, runtime.NumCPU()/2),
	}
}

type probeOutput struct {
	Format *struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// Probe reads container duration and audio tags. Any failure yields a zero
// Info together with the reason.
func (t *Toolkit) Probe(ctx context.Context, path string) (Info, error) {
	res, err := t.runner.Run(ctx, "ffprobe",
		"-hide_banner", "-loglevel", "error",
		"-print_format", "json", "-show_format", path,
	)
	if err != nil {
		return Info{}, fmt.Errorf("error running ffprobe: %v", err)
	}
	if !res.OK() || res.Stdout == "" {
		return Info{}, fmt.Errorf("ffprobe failed: %s", res.ErrText("no output"))
	}
	return parseProbe(res.Stdout)
}

func parseProbe(out string) (Info, error) {
	var parsed probeOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		log.Warn().Str("op", "media/probe").Err(err).Msg("malformed ffprobe output")
		return Info{}, fmt.Errorf("error parsing ffprobe output: %v", err)
	}
	if parsed.Format == nil {
		return Info{}, fmt.Errorf("ffprobe output has no format section")
	}
	info := Info{
		Artist: firstTag(parsed.Format.Tags, "artist", "ARTIST", "Artist"),
		Title:  firstTag(parsed.Format.Tags, "title", "TITLE", "Title"),
	}
	if parsed.Format.Duration != "" {
		seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("error parsing duration %q: %v", parsed.Format.Duration, err)
		}
		info.Duration = int(math.RoundToEven(seconds))
	}
	return info, nil
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}
