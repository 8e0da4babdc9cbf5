package aria2

import (
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

// Aria2Downloader fetches plain HTTP(S) links with aria2c using 16
// connections per server.
type Aria2Downloader struct {
	runner tools.Runner
	jar    utils.CookieSource
}

func New(runner tools.Runner, jar utils.CookieSource) *Aria2Downloader {
	return &Aria2Downloader{runner: runner, jar: jar}
}
