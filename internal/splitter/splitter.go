package splitter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

var (
	ErrDurationUnavailable = errors.New("could not get video duration for splitting")
	ErrNoVolumes           = errors.New("no archive volumes were produced")
)

type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

type Splitter struct {
	runner   tools.Runner
	fs       afero.Fs
	prober   Prober
	volumeMB int
}

func New(runner tools.Runner, fs afero.Fs, prober Prober, volumeMB int) *Splitter {
	if volumeMB <= 0 {
		volumeMB = utils.DefaultVolumeSizeMB
	}
	return &Splitter{runner: runner, fs: fs, prober: prober, volumeMB: volumeMB}
}

// PlanSplit produces the parts for one strategy: stream-copy segments for
// video, numbered archive volumes for everything else. A file at or under
// the ceiling gets an empty plan and nothing is written.
func (s *Splitter) PlanSplit(ctx context.Context, artifact utils.LocalArtifact, ceiling int64) (utils.SplitPlan, error) {
	if artifact.Size <= ceiling {
		return utils.SplitPlan{}, nil
	}
	if artifact.Kind == utils.KindVideo {
		return s.SplitVideo(ctx, artifact, ceiling)
	}
	return s.SplitArchive(ctx, artifact)
}

// Split is PlanSplit with the archive strategy as fallback when a video
// cannot be segmented.
func (s *Splitter) Split(ctx context.Context, artifact utils.LocalArtifact, ceiling int64) (utils.SplitPlan, error) {
	plan, err := s.PlanSplit(ctx, artifact, ceiling)
	if err == nil || artifact.Kind != utils.KindVideo || ctx.Err() != nil {
		return plan, err
	}
	log.Warn().Str("op", "splitter/split").Err(err).Msgf("video split failed for %s, falling back to archive", artifact.Path)
	return s.SplitArchive(ctx, artifact)
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (s *Splitter) removeAll(parts []utils.LocalArtifact) {
	for _, p := range parts {
		if err := s.fs.Remove(p.Path); err != nil {
			log.Debug().Str("op", "splitter/cleanup").Err(err).Msgf("could not remove %s", p.Path)
		}
	}
}

func (s *Splitter) partInfo(path string) (int64, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("part %s was not created", filepath.Base(path))
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("part %s is empty", filepath.Base(path))
	}
	return info.Size(), nil
}
