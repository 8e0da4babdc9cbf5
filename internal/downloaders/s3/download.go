package s3

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
)

func (d *S3Downloader) Download(ctx context.Context, url, dest string, progress utils.ProgressFunc) utils.DownloadResult {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return utils.DownloadResult{Err: err.Error()}
	}
	client, err := d.newClient(ctx, d.profile)
	if err != nil {
		return utils.DownloadResult{Err: fmt.Sprintf("error creating S3 client: %v", err)}
	}
	size, err := getS3ObjectSize(ctx, client, bucket, key)
	if err != nil {
		return utils.DownloadResult{Err: err.Error()}
	}
	log.Info().Str("op", "s3/download").Msgf("starting file download for s3://%s/%s (%d bytes)", bucket, key, size)
	if err := performS3Download(ctx, client, bucket, key, dest, size, progress); err != nil {
		log.Error().Str("op", "s3/download").Err(err).Msg("S3 download failed")
		utils.RemoveQuietly(dest)
		return utils.DownloadResult{Err: err.Error()}
	}
	return utils.DownloadResult{OK: true, Path: dest}
}
