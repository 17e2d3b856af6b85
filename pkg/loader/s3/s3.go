package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/csv"
)

type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DatasetLoader is a DatasetLoader implementation that loads dataset files
// from an S3 bucket. Contents are cached per key; concurrent loads of the same
// key share one request.
type S3DatasetLoader struct {
	bucket string
	client getObjectAPI
	cache  *loader.Cache
}

// NewS3DatasetLoaderWithClient creates a new S3DatasetLoader using an
// existing s3.Client.
func NewS3DatasetLoaderWithClient(bucket string, client *s3.Client) *S3DatasetLoader {
	return newLoader(bucket, client)
}

func newLoader(bucket string, client getObjectAPI) *S3DatasetLoader {
	return &S3DatasetLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache(),
	}
}

// NewS3DatasetLoaderParams defines the configuration parameters for
// creating a new S3DatasetLoader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO).
type NewS3DatasetLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3DatasetLoader creates a new S3DatasetLoader with static credentials.
//
// Example:
//
//	l, err := s3.NewS3DatasetLoader(ctx, s3.NewS3DatasetLoaderParams{
//		Bucket:    "datasets",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	ds, err := l.Load(ctx, "imports/capitals.json")
func NewS3DatasetLoader(ctx context.Context, params NewS3DatasetLoaderParams) (*S3DatasetLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return newLoader(params.Bucket, client), nil
}

// Load fetches and decodes the dataset object stored under key.
func (l *S3DatasetLoader) Load(ctx context.Context, key string) (common.Dataset, error) {
	data, err := l.cache.Get(key, func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", loader.ErrNotFound, key)
		}
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return common.Dataset{}, err
	}

	var ds common.Dataset
	if strings.EqualFold(path.Ext(key), ".csv") {
		ds, err = csv.DecodeDataset(data, "")
	} else {
		ds, err = loader.DecodeDataset(data)
	}
	if err != nil {
		return common.Dataset{}, err
	}
	if ds.Name == "" {
		base := path.Base(key)
		ds.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	return ds, nil
}

// Forget drops the cached contents of key.
func (l *S3DatasetLoader) Forget(key string) {
	l.cache.Forget(key)
}
