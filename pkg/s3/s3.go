package s3

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ItfS3 fetches scraped knowledge-corpus snapshots. The offline scraping
// pipeline drops its JSON output under a bucket prefix; the backend pulls
// the latest snapshot at startup or on an admin reindex.
type ItfS3 interface {
	ListCorpusFiles(prefix string) ([]string, error)
	DownloadCorpus(prefix, destDir string) ([]string, error)
}

type s3Client struct {
	client     *s3.S3
	session    *session.Session
	bucketName string
}

func New() (ItfS3, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &s3Client{
		client:     s3.New(sess),
		session:    sess,
		bucketName: os.Getenv("AWS_BUCKET_NAME"),
	}, nil
}

func newSession() (*session.Session, error) {
	region := os.Getenv("AWS_REGION")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	return session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
}

func (s *s3Client) ListCorpusFiles(prefix string) ([]string, error) {
	out, err := s.client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list corpus objects: %w", err)
	}

	var keys []string
	for _, obj := range out.Contents {
		key := aws.StringValue(obj.Key)
		if strings.HasSuffix(key, ".json") {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// DownloadCorpus copies every JSON object under prefix into destDir and
// returns the local paths.
func (s *s3Client) DownloadCorpus(prefix, destDir string) ([]string, error) {
	keys, err := s.ListCorpusFiles(prefix)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, err
	}

	var paths []string
	for _, key := range keys {
		obj, err := s.client.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return paths, fmt.Errorf("get %s: %w", key, err)
		}

		local := filepath.Join(destDir, filepath.Base(key))
		f, err := os.Create(local)
		if err != nil {
			obj.Body.Close()
			return paths, err
		}

		if _, err := io.Copy(f, obj.Body); err != nil {
			f.Close()
			obj.Body.Close()
			return paths, fmt.Errorf("download %s: %w", key, err)
		}
		f.Close()
		obj.Body.Close()

		paths = append(paths, local)
	}

	return paths, nil
}
