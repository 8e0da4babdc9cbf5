// Package downloaders routes source links to the adapter that can fetch them.
package downloaders

import (
	"github.com/tanq16/tgrelay/internal/downloaders/s3"
	"github.com/tanq16/tgrelay/internal/utils"
)

type Registry struct {
	HTTP  utils.Downloader
	Video utils.Downloader
	S3    utils.Downloader
}

// ForLink picks the adapter for the segmented-download command.
func (r Registry) ForLink(url string) utils.Downloader {
	if s3.IsS3URL(url) && r.S3 != nil {
		return r.S3
	}
	return r.HTTP
}
