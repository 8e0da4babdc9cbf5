package janitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/tgrelay/internal/utils"
)

// Target is a scratch directory. Pattern limits which file names are
// eligible; empty means every file.
type Target struct {
	Dir     string
	Pattern string
}

type Report struct {
	Files int
	Bytes int64
	Dirs  int
}

// Janitor removes scratch files that interrupted jobs leave behind.
type Janitor struct {
	fs      afero.Fs
	targets []Target
	maxAge  time.Duration
	now     func() time.Time
}

func New(fs afero.Fs, maxAge time.Duration, targets ...Target) *Janitor {
	return &Janitor{fs: fs, targets: targets, maxAge: maxAge, now: time.Now}
}

// Sweep deletes eligible files older than maxAge, then prunes empty
// subdirectories. Target roots are never removed.
func (j *Janitor) Sweep() (Report, error) {
	var report Report
	cutoff := j.now().Add(-j.maxAge)
	for _, target := range j.targets {
		if ok, _ := afero.DirExists(j.fs, target.Dir); !ok {
			continue
		}
		var dirs []string
		err := afero.Walk(j.fs, target.Dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if path != target.Dir {
					dirs = append(dirs, path)
				}
				return nil
			}
			if target.Pattern != "" {
				if ok, _ := filepath.Match(target.Pattern, info.Name()); !ok {
					return nil
				}
			}
			if info.ModTime().After(cutoff) {
				return nil
			}
			if err := j.fs.Remove(path); err != nil {
				log.Warn().Str("op", "janitor/janitor").Msgf("could not remove %s: %v", path, err)
				return nil
			}
			report.Files++
			report.Bytes += info.Size()
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("error sweeping %s: %v", target.Dir, err)
		}
		// deepest first so parents empty out
		sort.Slice(dirs, func(a, b int) bool { return len(dirs[a]) > len(dirs[b]) })
		for _, dir := range dirs {
			if empty, _ := afero.IsEmpty(j.fs, dir); empty {
				if err := j.fs.Remove(dir); err == nil {
					report.Dirs++
				}
			}
		}
	}
	if report.Files > 0 || report.Dirs > 0 {
		log.Info().Str("op", "janitor/janitor").Msgf("removed %d stale files (%s) and %d directories",
			report.Files, utils.FormatBytes(uint64(report.Bytes)), report.Dirs)
	}
	return report, nil
}

// Schedule runs Sweep on a cron spec such as "@hourly" or "*/30 * * * *".
// The caller stops the returned scheduler.
func (j *Janitor) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.Sweep(); err != nil {
			log.Error().Str("op", "janitor/janitor").Err(err).Msg("scheduled sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %v", spec, err)
	}
	c.Start()
	log.Info().Str("op", "janitor/janitor").Msgf("scratch janitor scheduled (%s, max age %s)", spec, j.maxAge)
	return c, nil
}
