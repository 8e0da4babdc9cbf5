package s3

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tanq16/tgrelay/internal/utils"
)

const bufferSize = 1024 * 1024 * 8

type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func getS3ObjectSize(ctx context.Context, client objectAPI, bucket, key string) (int64, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("error accessing S3 object: %v", err)
	}
	if head.ContentLength == nil {
		return -1, nil
	}
	return *head.ContentLength, nil
}

func performS3Download(ctx context.Context, client objectAPI, bucket, key, outputPath string, size int64, progress utils.ProgressFunc) error {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error getting object: %v", err)
	}
	defer result.Body.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error creating file: %v", err)
	}
	defer file.Close()

	buffer := make([]byte, bufferSize)
	var written int64
	for {
		n, err := result.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("error writing file: %v", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, size)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading object: %v", err)
		}
	}
	return nil
}
