package ytdlp

import (
	"github.com/spf13/afero"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

type YtdlpDownloader struct {
	runner   tools.Runner
	fs       afero.Fs
	jar      utils.CookieSource
	useAria2 bool
}

// New builds a yt-dlp adapter. With useAria2 set, fragments are fetched by
// aria2c as the external downloader.
func New(runner tools.Runner, fs afero.Fs, jar utils.CookieSource, useAria2 bool) *YtdlpDownloader {
	return &YtdlpDownloader{runner: runner, fs: fs, jar: jar, useAria2: useAria2}
}

func (d *YtdlpDownloader) cookieArgs() []string {
	if d.jar != nil && d.jar.Exists() {
		return []string{"--cookies", d.jar.Path()}
	}
	return nil
}
