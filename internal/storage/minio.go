package storage

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/abduss/msc/internal/config"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOClient establishes a MinIO S3 client using the provided configuration.
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint(), &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return client, nil
}

// NewMinIOAdminClient establishes a MinIO admin client sharing the S3 client's credentials.
func NewMinIOAdminClient(cfg config.MinIOConfig) (*madmin.AdminClient, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	client, err := madmin.NewWithOptions(cfg.Endpoint(), &madmin.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio admin client: %w", err)
	}
	client.SetCustomTransport(transport)

	return client, nil
}

func newTransport(cfg config.MinIOConfig) (http.RoundTripper, error) {
	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("build minio transport: %w", err)
	}
	if cfg.UseSSL && !cfg.CertCheck {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // CERT_CHECK=false is an explicit opt-out
	}
	return transport, nil
}
