package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/vecerr"
)

const s3Scheme = "s3://"

// ObjectAPI is the subset of the S3 client used to fetch dataset files.
type ObjectAPI interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Fetcher downloads remote dataset files into a cache directory.
type Fetcher struct {
	client   ObjectAPI
	cacheDir string
	logger   *logging.Logger
}

// NewFetcher creates a Fetcher over client. An empty cacheDir uses the
// user cache directory.
func NewFetcher(client ObjectAPI, cacheDir string, logger *logging.Logger) (*Fetcher, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, "resolving cache directory")
		}
		cacheDir = filepath.Join(base, "vecbench")
	}
	return &Fetcher{client: client, cacheDir: cacheDir, logger: logging.OrNoop(logger)}, nil
}

// NewS3Fetcher builds the S3 client from the default AWS configuration chain.
func NewS3Fetcher(ctx context.Context, cacheDir string, logger *logging.Logger) (*Fetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, "loading aws config")
	}
	return NewFetcher(s3.NewFromConfig(cfg), cacheDir, logger)
}

// Fetch downloads every remote file of files and returns their local
// paths. Local paths are returned unchanged; cached files with the remote
// size are reused.
func (f *Fetcher) Fetch(ctx context.Context, files Files) (Files, error) {
	local := files
	targets := []*string{&local.Base, &local.Query, &local.GroundTruth}
	for _, target := range targets {
		if !IsRemote(*target) {
			continue
		}
		p, err := f.fetchOne(ctx, *target)
		if err != nil {
			return Files{}, vecerr.With(err, vecerr.FieldDataset(files.Name))
		}
		*target = p
	}
	return local, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, uri string) (string, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return "", err
	}
	head, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fetchError(err, uri, "head object")
	}
	size := aws.ToInt64(head.ContentLength)
	dest := filepath.Join(f.cacheDir, bucket, filepath.FromSlash(key))
	if info, err := os.Stat(dest); err == nil && info.Size() == size {
		f.logger.DebugContext(ctx, "dataset file cached", "file", dest, "size", size)
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, "creating cache directory", vecerr.FieldFile(dest))
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return "", vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, "creating cache file", vecerr.FieldFile(dest))
	}
	defer os.Remove(tmp.Name())

	n, err := manager.NewDownloader(f.client).Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fetchError(err, uri, "download")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, "storing cache file", vecerr.FieldFile(dest))
	}
	f.logger.InfoContext(ctx, "dataset file downloaded", "uri", uri, "file", dest, "bytes", n)
	return dest, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if ok {
		bucket, key, ok = strings.Cut(rest, "/")
	}
	if !ok || bucket == "" || key == "" {
		return "", "", vecerr.New(vecerr.CodeDatasetFetchFailure, "malformed s3 uri", vecerr.FieldFile(uri))
	}
	return bucket, key, nil
}

func fetchError(err error, uri, op string) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return vecerr.New(vecerr.CodeDatasetNotFound, "dataset object not found", vecerr.FieldFile(uri))
	}
	return vecerr.Wrap(err, vecerr.CodeDatasetFetchFailure, op+" failed", vecerr.FieldFile(uri))
}
