package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/powerskills-labs/powerskills-go/internal/platform/env"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	BucketReports string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("POWERSKILLS_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("POWERSKILLS_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("POWERSKILLS_MINIO_ACCESS_KEY", "powerskills"),
		SecretKey:     env.String("POWERSKILLS_MINIO_SECRET_KEY", "powerskillsminio"),
		Region:        env.String("POWERSKILLS_MINIO_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketReports: env.String("POWERSKILLS_MINIO_BUCKET_REPORTS", "execution-reports"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"endpoint", c.Endpoint},
		{"access key", c.AccessKey},
		{"secret key", c.SecretKey},
		{"region", c.Region},
		{"reports bucket", c.BucketReports},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return errors.New(field.name + " is required")
		}
	}
	// minio-go takes host:port; a scheme here is almost always a
	// misconfigured URL copied from elsewhere.
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
