package aria2

import (
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tanq16/tgrelay/internal/utils"
)

var summaryPercentRegex = regexp.MustCompile(`\((\d{1,3})%\)`)

func buildArgs(url, dest string, jar utils.CookieSource) []string {
	var args []string
	if jar != nil && jar.Exists() {
		args = append(args, "--load-cookies="+jar.Path())
	}
	args = append(args,
		"--max-connection-per-server=16",
		"--split=16",
		"--min-split-size=1M",
		"--max-tries=5",
		"--retry-wait=5",
		"--timeout=60",
		"--dir", filepath.Dir(dest),
		"--out", filepath.Base(dest),
		"--console-log-level=error",
		"--summary-interval=10",
		"--allow-overwrite=true",
		url,
	)
	return args
}

// percentTracker forwards aria2c summary percentages such as
// "[#2089b0 400MiB/1.2GiB(33%) CN:16 DL:12MiB]".
type percentTracker struct {
	progress utils.ProgressFunc
	last     int64
}

func newPercentTracker(progress utils.ProgressFunc) *percentTracker {
	return &percentTracker{progress: progress, last: -1}
}

func (p *percentTracker) line(line string) {
	if p.progress == nil {
		return
	}
	m := summaryPercentRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	pct, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || pct == p.last {
		return
	}
	p.last = pct
	p.progress(pct, 100)
}
