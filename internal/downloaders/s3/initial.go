package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Downloader serves s3://bucket/key links on the segmented-download
// command. The client is built lazily so a missing AWS profile only
// matters when such a link is used.
type S3Downloader struct {
	profile   string
	newClient func(ctx context.Context, profile string) (objectAPI, error)
}

func New(profile string) *S3Downloader {
	return &S3Downloader{profile: profile, newClient: getS3Client}
}

func IsS3URL(url string) bool {
	return strings.HasPrefix(url, "s3://")
}

func getS3Client(ctx context.Context, profile string) (objectAPI, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(profile),
		config.WithRetryMode("adaptive"),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func parseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" || strings.HasSuffix(parts[1], "/") {
		return "", "", fmt.Errorf("invalid S3 URL format, expected s3://bucket/key")
	}
	return parts[0], parts[1], nil
}
