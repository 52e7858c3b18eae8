package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/assetload/blobstore"
)

// Client is the subset of the S3 API the store needs.
// *s3.Client satisfies it; tests substitute a mock.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements blobstore.BlobStore for S3.
// When the client also implements manager.UploadAPIClient the store can Put.
type Store struct {
	client     Client
	bucket     string
	prefix     string
	downloader *manager.Downloader
	uploader   *manager.Uploader
	uploadCfg  UploadConfig
}

type options struct {
	prefix      string
	region      string
	endpoint    string
	partSize    int64
	concurrency int
	upload      *UploadConfig
}

// Option configures New.
type Option func(*options)

// WithPrefix prepends prefix to all keys (e.g. "bundles/").
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the shared AWS config.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at a custom endpoint (LocalStack, gateways).
// Path-style addressing is enabled when an endpoint is set.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithDownloadPartSize sets the ranged-GET size used for whole-object fetches.
func WithDownloadPartSize(size int64) Option {
	return func(o *options) { o.partSize = size }
}

// WithDownloadConcurrency sets the number of parallel ranged GETs per fetch.
func WithDownloadConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithUploadConfig overrides DefaultUploadConfig.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = &cfg }
}

// New creates a store using the default AWS credential chain.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = true
		}
	})

	s := NewStore(client, bucket, o.prefix)
	s.downloader = newDownloader(client, o)
	if o.upload != nil {
		s.uploadCfg = *o.upload
		s.uploader = newUploader(client, s.uploadCfg)
	}
	return s, nil
}

// NewStore creates a new S3 blob store from an existing client.
// rootPrefix is prepended to all keys.
func NewStore(client Client, bucket, rootPrefix string) *Store {
	s := &Store{
		client:     client,
		bucket:     bucket,
		prefix:     rootPrefix,
		downloader: newDownloader(client, options{}),
		uploadCfg:  DefaultUploadConfig(),
	}
	if uc, ok := client.(manager.UploadAPIClient); ok {
		s.uploader = newUploader(uc, s.uploadCfg)
	}
	return s
}

func newDownloader(client Client, o options) *manager.Downloader {
	return manager.NewDownloader(client, func(d *manager.Downloader) {
		if o.partSize > 0 {
			d.PartSize = o.partSize
		}
		if o.concurrency > 0 {
			d.Concurrency = o.concurrency
		}
	})
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open checks the object exists and returns a range-reading blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Fetch downloads the whole object with the transfer manager.
func (s *Store) Fetch(ctx context.Context, name string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, translateError(err)
	}
	return buf.Bytes()[:n], nil
}

func translateError(err error) error {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", blobstore.ErrNotFound, err)
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %w", blobstore.ErrNotFound, err)
	}
	return err
}

// s3Blob implements blobstore.Blob with ranged GETs.
type s3Blob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) Close() error {
	return nil
}

func (b *s3Blob) Size() int64 {
	return b.size
}

func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, translateError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}
