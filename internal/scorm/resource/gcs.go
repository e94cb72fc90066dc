package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	// Endpoint points the client at an emulator, e.g. http://localhost:4443/storage/v1/.
	Endpoint        string
	CredentialsFile string
}

type gcsStore struct {
	client *storage.Client
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (ObjectStore, func() error, error) {
	var opts []option.ClientOption
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			ep = "http://" + ep
		}
		opts = append(opts, option.WithEndpoint(strings.TrimRight(ep, "/")+"/storage/v1/"), option.WithoutAuthentication())
	} else if cf := strings.TrimSpace(cfg.CredentialsFile); cf != "" {
		opts = append(opts, option.WithCredentialsFile(cf))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStore{client: client}, client.Close, nil
}

func (s *gcsStore) Exists(ctx context.Context, bucket, object string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *gcsStore) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return s.client.Bucket(bucket).Object(object).NewReader(ctx)
}
