package splitter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

// PlanRanges divides duration seconds into contiguous segments sized to land
// under the ceiling. The last segment absorbs the remainder.
func PlanRanges(size, ceiling int64, duration int) []utils.TimeRange {
	target := float64(ceiling) * 0.9
	count := max(2, int(float64(size)/target+0.5))
	part := duration / count
	ranges := make([]utils.TimeRange, count)
	for i := range count {
		ranges[i] = utils.TimeRange{Start: i * part, End: (i + 1) * part}
	}
	ranges[count-1].End = duration
	return ranges
}

func (s *Splitter) SplitVideo(ctx context.Context, artifact utils.LocalArtifact, ceiling int64) (utils.SplitPlan, error) {
	info, err := s.prober.Probe(ctx, artifact.Path)
	if err != nil || info.Duration <= 0 {
		log.Error().Str("op", "splitter/video").Msgf("no duration for %s: %v", artifact.Path, err)
		return utils.SplitPlan{}, ErrDurationUnavailable
	}
	ranges := PlanRanges(artifact.Size, ceiling, info.Duration)
	if ranges[0].End == 0 {
		return utils.SplitPlan{}, fmt.Errorf("video of %ds is too short to split into %d parts", info.Duration, len(ranges))
	}
	log.Info().Str("op", "splitter/video").Msgf("splitting %s video into %d parts", utils.FormatBytes(uint64(artifact.Size)), len(ranges))

	dir := filepath.Dir(artifact.Path)
	base := baseName(artifact.Path)
	var parts []utils.LocalArtifact
	for i, r := range ranges {
		partPath := filepath.Join(dir, fmt.Sprintf("%s_part%d.mp4", base, i+1))
		args := []string{"-hide_banner", "-loglevel", "error", "-ss", fmt.Sprint(r.Start), "-i", artifact.Path}
		if i < len(ranges)-1 {
			args = append(args, "-t", fmt.Sprint(r.End-r.Start))
		}
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero", "-y", partPath)

		res, err := tools.RunWithTimeout(ctx, s.runner, utils.PartTimeout, "ffmpeg", args...)
		if err == nil && !res.OK() {
			err = fmt.Errorf("ffmpeg split error for part %d: %s", i+1, res.ErrText("unknown error"))
		}
		var size int64
		if err == nil {
			size, err = s.partInfo(partPath)
		}
		if err != nil {
			log.Error().Str("op", "splitter/video").Err(err).Msgf("failed on part %d of %d", i+1, len(ranges))
			s.removeAll(append(parts, utils.LocalArtifact{Path: partPath}))
			return utils.SplitPlan{}, err
		}
		parts = append(parts, utils.LocalArtifact{Path: partPath, Size: size, Kind: utils.KindVideo})
		log.Info().Str("op", "splitter/video").Msgf("created part %d: %s (%s)", i+1, filepath.Base(partPath), utils.FormatBytes(uint64(size)))
	}
	return utils.SplitPlan{Strategy: utils.StrategyStreamCopy, Parts: parts, Ranges: ranges}, nil
}
