package splitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/tgrelay/internal/utils"
)

// SplitArchive stores the file without compression in fixed-size 7z volumes
// named <base>_part.7z.001, .002 and so on.
func (s *Splitter) SplitArchive(ctx context.Context, artifact utils.LocalArtifact) (utils.SplitPlan, error) {
	archive := filepath.Join(filepath.Dir(artifact.Path), baseName(artifact.Path)+"_part.7z")
	res, err := s.runner.Run(ctx, "7z", "a", fmt.Sprintf("-v%dm", s.volumeMB), "-mx=0", archive, artifact.Path)
	if err == nil && !res.OK() {
		err = fmt.Errorf("7z failed: %s", res.ErrText("unknown error"))
	}
	if err != nil {
		log.Error().Str("op", "splitter/archive").Err(err).Msgf("archiving %s", artifact.Path)
		if volumes, scanErr := s.Volumes(archive); scanErr == nil {
			s.removeAll(volumes)
		}
		return utils.SplitPlan{}, err
	}
	volumes, err := s.Volumes(archive)
	if err != nil {
		return utils.SplitPlan{}, err
	}
	log.Info().Str("op", "splitter/archive").Msgf("created %d archive volumes for %s", len(volumes), filepath.Base(artifact.Path))
	return utils.SplitPlan{Strategy: utils.StrategyArchive, Parts: volumes}, nil
}

// Volumes lists the numbered volumes of archive in suffix order, or the
// single unnumbered archive when 7z wrote only one file.
func (s *Splitter) Volumes(archive string) ([]utils.LocalArtifact, error) {
	matches, err := afero.Glob(s.fs, archive+".*")
	if err != nil {
		return nil, fmt.Errorf("error scanning volumes: %v", err)
	}
	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, m := range matches {
		sub := utils.VolumeSuffixRegex.FindStringSubmatch(m)
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: m})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	var volumes []utils.LocalArtifact
	for _, f := range found {
		info, err := s.fs.Stat(f.path)
		if err != nil {
			continue
		}
		volumes = append(volumes, utils.LocalArtifact{Path: f.path, Size: info.Size(), Kind: utils.KindDocument})
	}
	if len(volumes) == 0 {
		if info, err := s.fs.Stat(archive); err == nil && !info.IsDir() {
			return []utils.LocalArtifact{{Path: archive, Size: info.Size(), Kind: utils.KindDocument}}, nil
		}
		return nil, ErrNoVolumes
	}
	return volumes, nil
}

// ExtractVolumes unpacks a volume set starting at first into outDir and
// returns the first regular file found there.
func (s *Splitter) ExtractVolumes(ctx context.Context, first, outDir string) (string, error) {
	if err := s.fs.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %v", err)
	}
	res, err := s.runner.Run(ctx, "7z", "x", "-y", "-o"+outDir, first)
	if err != nil {
		return "", fmt.Errorf("error running 7z: %v", err)
	}
	if !res.OK() {
		return "", fmt.Errorf("7z extraction failed: %s", res.ErrText("unknown error"))
	}
	var extracted string
	err = afero.Walk(s.fs, outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || extracted != "" {
			return err
		}
		if info.Mode().IsRegular() {
			extracted = path
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && err != filepath.SkipDir {
		return "", fmt.Errorf("error scanning extracted files: %v", err)
	}
	if extracted == "" {
		return "", fmt.Errorf("no files were extracted from %s", filepath.Base(first))
	}
	return extracted, nil
}
