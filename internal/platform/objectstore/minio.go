package objectstore

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: baseTransport(),
	})
}

// EnsureBuckets creates the execution-reports bucket when it does not
// exist yet. Safe to call on every startup.
func EnsureBuckets(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.BucketReports)
	if err != nil {
		return fmt.Errorf("reports bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.BucketReports, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make reports bucket: %w", err)
	}
	return nil
}

// CheckBuckets is the readiness probe: it fails when the reports bucket
// is unreachable or missing.
func CheckBuckets(ctx context.Context, client *minio.Client, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, cfg.BucketReports)
	if err != nil {
		return fmt.Errorf("reports bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("reports bucket missing: %s", cfg.BucketReports)
	}
	return nil
}

func baseTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
