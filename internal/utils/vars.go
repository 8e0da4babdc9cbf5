package utils

import (
	"errors"
	"regexp"
	"time"
)

const (
	GiB = 1024 * 1024 * 1024

	DefaultSizeCeiling  = 2 * GiB
	PremiumSizeCeiling  = 4 * GiB
	DefaultVolumeSizeMB = 1900
	MaxAlbumSize        = 10
	CaptionLimit        = 200

	FallbackThumbWidth  = 480
	FallbackThumbHeight = 320
	DefaultThumbSeconds = 3

	TimestampLayout = "20060102_150405"
	ToolUserAgent   = "tgrelay/1.0"
)

const (
	PartTimeout      = 300 * time.Second
	ThumbnailTimeout = 60 * time.Second
	AlbumPause       = 1 * time.Second
	SingleSendPause  = 500 * time.Millisecond
	BatchDelay       = 3 * time.Second
)

var ErrNoMedia = errors.New("no media or text found in the post URL")
var ErrNotInChat = errors.New("make sure the user client is part of the chat")

var DownloadPercentRegex = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
var VolumeSuffixRegex = regexp.MustCompile(`\.7z\.(\d{3,})$`)
