package postprocess

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"git.home.luguber.info/inful/interleave/internal/plugin"
)

// PublishConfig locates the S3-compatible bucket outputs are uploaded to.
type PublishConfig struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Prefix is prepended to every object key.
	Prefix string
}

// Configured reports whether an endpoint and bucket are set.
func (c PublishConfig) Configured() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publish uploads output files to object storage under
// <prefix>/<data.name>/<data.version>/<file>.
type Publish struct {
	cfg      PublishConfig
	newStore func(PublishConfig) (objectStore, error)

	once    sync.Once
	store   objectStore
	initErr error
}

// NewPublish creates the publish processor. The client is created on first use.
func NewPublish(cfg PublishConfig) *Publish {
	return &Publish{cfg: cfg, newStore: newMinioStore}
}

func newMinioStore(cfg PublishConfig) (objectStore, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("publish access key and secret key are required")
	}
	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return client, nil
}

func (p *Publish) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "publish",
		Type:        plugin.PluginTypePostprocessor,
		Description: "upload outputs to an S3-compatible bucket",
	}
}

func (p *Publish) init(ctx context.Context) error {
	p.once.Do(func() {
		if !p.cfg.Configured() {
			p.initErr = fmt.Errorf("publish endpoint and bucket are not configured")
			return
		}
		store, err := p.newStore(p.cfg)
		if err != nil {
			p.initErr = err
			return
		}
		exists, err := store.BucketExists(ctx, p.cfg.Bucket)
		if err != nil {
			p.initErr = fmt.Errorf("check bucket: %w", err)
			return
		}
		if !exists {
			if err := store.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
				p.initErr = fmt.Errorf("create bucket: %w", err)
				return
			}
		}
		p.store = store
	})
	return p.initErr
}

func (p *Publish) Process(ctx context.Context, s Session, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := p.init(ctx); err != nil {
		return err
	}

	for _, f := range files {
		key := p.ObjectKey(s.Data(), f)
		opts := minio.PutObjectOptions{ContentType: contentType(f)}
		if _, err := p.store.FPutObject(ctx, p.cfg.Bucket, key, f, opts); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}

// ObjectKey returns the key a file is uploaded under.
func (p *Publish) ObjectKey(data map[string]any, file string) string {
	parts := []string{strings.Trim(p.cfg.Prefix, "/")}
	for _, k := range []string{"name", "version"} {
		if v, ok := data[k]; ok && v != nil {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	parts = append(parts, filepath.Base(file))
	return strings.TrimPrefix(path.Join(parts...), "/")
}

func contentType(file string) string {
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}
