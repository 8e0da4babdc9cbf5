package splitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/tools/toolstest"
	"github.com/tanq16/tgrelay/internal/utils"
)

type fixedProber struct {
	duration int
	err      error
}

func (p fixedProber) Probe(context.Context, string) (media.Info, error) {
	return media.Info{Duration: p.duration}, p.err
}

func ffmpegWriter(fs afero.Fs, failOn int) toolstest.Handler {
	part := 0
	return func(_ context.Context, call toolstest.Call, _ func(string)) (tools.Result, error) {
		if call.Name != "ffmpeg" {
			return tools.Result{ExitCode: 1}, nil
		}
		part++
		if part == failOn {
			return tools.Result{ExitCode: 1, Stderr: "Conversion failed!"}, nil
		}
		out := call.Args[len(call.Args)-1]
		return tools.Result{}, afero.WriteFile(fs, out, []byte("segment"), 0644)
	}
}

func TestPlanRangesScenario(t *testing.T) {
	ranges := PlanRanges(5*utils.GiB, 2*utils.GiB, 300)
	assert.Equal(t, []utils.TimeRange{{Start: 0, End: 100}, {Start: 100, End: 200}, {Start: 200, End: 300}}, ranges)
}

func TestPlanRangesContiguousCoverage(t *testing.T) {
	for _, tc := range []struct {
		size     int64
		duration int
	}{
		{2*utils.GiB + 1, 7201},
		{9 * utils.GiB, 3599},
		{20 * utils.GiB, 86400},
	} {
		ranges := PlanRanges(tc.size, 2*utils.GiB, tc.duration)
		require.GreaterOrEqual(t, len(ranges), 2)
		assert.Equal(t, 0, ranges[0].Start)
		assert.Equal(t, tc.duration, ranges[len(ranges)-1].End)
		for i := 1; i < len(ranges); i++ {
			assert.Equal(t, ranges[i-1].End, ranges[i].Start)
			assert.Less(t, ranges[i].Start, ranges[i].End)
		}
	}
}

func TestPlanSplitUnderCeiling(t *testing.T) {
	fake := toolstest.New(nil)
	s := New(fake, afero.NewMemMapFs(), fixedProber{duration: 10}, 0)
	plan, err := s.PlanSplit(context.Background(), utils.LocalArtifact{Path: "/d/a.mp4", Size: 2 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, fake.Calls())
}

func TestSplitVideoArgs(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := toolstest.New(ffmpegWriter(fs, 0))
	s := New(fake, fs, fixedProber{duration: 300}, 0)
	plan, err := s.PlanSplit(context.Background(), utils.LocalArtifact{Path: "/d/movie.mkv", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	require.NoError(t, err)
	assert.Equal(t, utils.StrategyStreamCopy, plan.Strategy)
	require.Len(t, plan.Parts, 3)
	for i, p := range plan.Parts {
		assert.Equal(t, filepath.Join("/d", fmt.Sprintf("movie_part%d.mp4", i+1)), p.Path)
		assert.Equal(t, utils.KindVideo, p.Kind)
	}
	calls := fake.CallsTo("ffmpeg")
	require.Len(t, calls, 3)
	assert.Equal(t, "0", calls[0].After("-ss"))
	assert.Equal(t, "100", calls[0].After("-t"))
	assert.Equal(t, "200", calls[2].After("-ss"))
	assert.False(t, calls[2].Has("-t"))
	assert.Equal(t, "copy", calls[1].After("-c"))
	assert.Equal(t, "make_zero", calls[1].After("-avoid_negative_ts"))
}

func TestSplitVideoFailureCleansEarlierParts(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := toolstest.New(ffmpegWriter(fs, 3))
	s := New(fake, fs, fixedProber{duration: 300}, 0)
	_, err := s.SplitVideo(context.Background(), utils.LocalArtifact{Path: "/d/movie.mp4", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	require.ErrorContains(t, err, "Conversion failed!")
	for i := 1; i <= 3; i++ {
		exists, _ := afero.Exists(fs, fmt.Sprintf("/d/movie_part%d.mp4", i))
		assert.False(t, exists)
	}
}

func TestSplitVideoEmptyPartFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := toolstest.New(func(_ context.Context, call toolstest.Call, _ func(string)) (tools.Result, error) {
		return tools.Result{}, afero.WriteFile(fs, call.Args[len(call.Args)-1], nil, 0644)
	})
	s := New(fake, fs, fixedProber{duration: 300}, 0)
	_, err := s.SplitVideo(context.Background(), utils.LocalArtifact{Path: "/d/movie.mp4", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	assert.ErrorContains(t, err, "empty")
}

func TestSplitVideoTimeout(t *testing.T) {
	fake := toolstest.New(func(context.Context, toolstest.Call, func(string)) (tools.Result, error) {
		return tools.Result{ExitCode: -1}, tools.ErrTimeout
	})
	s := New(fake, afero.NewMemMapFs(), fixedProber{duration: 300}, 0)
	_, err := s.SplitVideo(context.Background(), utils.LocalArtifact{Path: "/d/movie.mp4", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	assert.ErrorIs(t, err, tools.ErrTimeout)
}

func TestSplitVideoNoDuration(t *testing.T) {
	s := New(toolstest.New(nil), afero.NewMemMapFs(), fixedProber{err: errors.New("ffprobe failed")}, 0)
	_, err := s.SplitVideo(context.Background(), utils.LocalArtifact{Path: "/d/movie.mp4", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	assert.ErrorIs(t, err, ErrDurationUnavailable)
}

// sevenZip emulates 7z a -v<n>m by slicing the source bytes into volumes.
func sevenZip(fs afero.Fs, src []byte, volumeBytes int) toolstest.Handler {
	return func(_ context.Context, call toolstest.Call, _ func(string)) (tools.Result, error) {
		if call.Name != "7z" || call.Args[0] != "a" {
			return tools.Result{ExitCode: 2}, nil
		}
		archive := call.Args[3]
		for i := 0; i*volumeBytes < len(src); i++ {
			end := min(len(src), (i+1)*volumeBytes)
			name := fmt.Sprintf("%s.%03d", archive, i+1)
			if err := afero.WriteFile(fs, name, src[i*volumeBytes:end], 0644); err != nil {
				return tools.Result{}, err
			}
		}
		return tools.Result{}, nil
	}
}

func TestSplitArchiveVolumesInOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := []byte(strings.Repeat("0123456789", 120))
	fake := toolstest.New(sevenZip(fs, src, 100))
	s := New(fake, fs, fixedProber{}, 1900)
	plan, err := s.PlanSplit(context.Background(), utils.LocalArtifact{Path: "/d/data.iso", Size: 3 * utils.GiB, Kind: utils.KindDocument}, 2*utils.GiB)
	require.NoError(t, err)
	assert.Equal(t, utils.StrategyArchive, plan.Strategy)
	require.Len(t, plan.Parts, 12)
	assert.True(t, strings.HasSuffix(plan.Parts[9].Path, "data_part.7z.010"))

	var joined bytes.Buffer
	for _, p := range plan.Parts {
		b, err := afero.ReadFile(fs, p.Path)
		require.NoError(t, err)
		joined.Write(b)
	}
	assert.Equal(t, src, joined.Bytes())

	call := fake.CallsTo("7z")[0]
	assert.Equal(t, []string{"a", "-v1900m", "-mx=0", "/d/data_part.7z", "/d/data.iso"}, call.Args)
}

func TestSplitArchiveSingleUnnumberedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := toolstest.New(func(_ context.Context, call toolstest.Call, _ func(string)) (tools.Result, error) {
		return tools.Result{}, afero.WriteFile(fs, call.Args[3], []byte("7z"), 0644)
	})
	s := New(fake, fs, fixedProber{}, 1900)
	plan, err := s.SplitArchive(context.Background(), utils.LocalArtifact{Path: "/d/data.bin"})
	require.NoError(t, err)
	require.Len(t, plan.Parts, 1)
	assert.Equal(t, "/d/data_part.7z", plan.Parts[0].Path)
}

func TestSplitArchiveNoVolumes(t *testing.T) {
	s := New(toolstest.New(nil), afero.NewMemMapFs(), fixedProber{}, 1900)
	_, err := s.SplitArchive(context.Background(), utils.LocalArtifact{Path: "/d/data.bin"})
	assert.ErrorIs(t, err, ErrNoVolumes)
}

func TestSplitFallsBackToArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	archiver := sevenZip(fs, []byte("abcdef"), 4)
	fake := toolstest.New(func(ctx context.Context, call toolstest.Call, fn func(string)) (tools.Result, error) {
		if call.Name == "ffmpeg" {
			return tools.Result{ExitCode: 1, Stderr: "moov atom not found"}, nil
		}
		return archiver(ctx, call, fn)
	})
	s := New(fake, fs, fixedProber{duration: 300}, 1900)
	plan, err := s.Split(context.Background(), utils.LocalArtifact{Path: "/d/broken.mp4", Size: 5 * utils.GiB, Kind: utils.KindVideo}, 2*utils.GiB)
	require.NoError(t, err)
	assert.Equal(t, utils.StrategyArchive, plan.Strategy)
	assert.Len(t, plan.Parts, 2)
}

func TestExtractVolumes(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := toolstest.New(func(_ context.Context, call toolstest.Call, _ func(string)) (tools.Result, error) {
		out := strings.TrimPrefix(call.Args[2], "-o")
		return tools.Result{}, afero.WriteFile(fs, filepath.Join(out, "movie.mp4"), []byte("restored"), 0644)
	})
	s := New(fake, fs, fixedProber{}, 1900)
	path, err := s.ExtractVolumes(context.Background(), "/d/movie_part.7z.001", "/out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "movie.mp4"), path)
	assert.Equal(t, []string{"x", "-y", "-o/out", "/d/movie_part.7z.001"}, fake.Calls()[0].Args)
}

func TestExtractVolumesNothingExtracted(t *testing.T) {
	s := New(toolstest.New(nil), afero.NewMemMapFs(), fixedProber{}, 1900)
	_, err := s.ExtractVolumes(context.Background(), "/d/x.7z.001", "/out")
	assert.Error(t, err)
}
