package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/yungbote/scormbridge/internal/config"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
)

var newGCSStore = resource.NewGCSStore

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidEndpoint    StorageProviderBootstrapErrorCode = "invalid_endpoint"
	StorageProviderBootstrapErrorMissingCredentials StorageProviderBootstrapErrorCode = "missing_credentials"
	StorageProviderBootstrapErrorConnectFailed      StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code     StorageProviderBootstrapErrorCode
	Endpoint string
	Cause    error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s endpoint=%q): %v",
		e.Code,
		e.Endpoint,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore builds the store behind gs:// package roots. A disabled
// config yields a nil store; gs:// roots then probe as missing.
func resolveObjectStore(ctx context.Context, log *logger.Logger, cfg config.GCSConfig) (resource.ObjectStore, func() error, error) {
	if !cfg.Enabled {
		log.Info("Object storage package roots disabled")
		return nil, nil, nil
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	credentials := strings.TrimSpace(cfg.CredentialsFile)

	if err := validateStorageConfig(endpoint, credentials); err != nil {
		log.Error(
			"Object storage provider selection failed",
			"endpoint", endpoint,
			"credentials_file", credentials,
			"error_code", storageProviderBootstrapErrorCode(err),
			"error", err,
		)
		return nil, nil, err
	}

	log.Info(
		"Selecting object storage provider",
		"endpoint", endpoint,
		"emulator", endpoint != "",
	)

	store, closeFn, err := newGCSStore(ctx, resource.GCSConfig{Endpoint: endpoint, CredentialsFile: credentials})
	if err != nil {
		classified := &StorageProviderBootstrapError{
			Code:     StorageProviderBootstrapErrorConnectFailed,
			Endpoint: endpoint,
			Cause:    err,
		}
		log.Error(
			"Object storage provider bootstrap failed",
			"endpoint", endpoint,
			"error_code", classified.Code,
			"error", classified,
		)
		return nil, nil, classified
	}
	return store, closeFn, nil
}

func validateStorageConfig(endpoint, credentials string) error {
	if endpoint != "" {
		raw := endpoint
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			if err == nil {
				err = errors.New("endpoint has no host")
			}
			return &StorageProviderBootstrapError{
				Code:     StorageProviderBootstrapErrorInvalidEndpoint,
				Endpoint: endpoint,
				Cause:    err,
			}
		}
		return nil
	}
	if credentials != "" {
		if _, err := os.Stat(credentials); err != nil {
			return &StorageProviderBootstrapError{
				Code:  StorageProviderBootstrapErrorMissingCredentials,
				Cause: err,
			}
		}
	}
	return nil
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
