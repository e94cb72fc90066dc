package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/yungbote/scormbridge/internal/platform/logger"
)

// maxReadBytes caps a single manifest read.
var maxReadBytes int64 = 16 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ObjectStore is the subset of an object storage client the locator needs
// for gs:// locations.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, object string) (bool, error)
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type Locator struct {
	log       *logger.Logger
	client    *http.Client
	objects   ObjectStore
	userAgent string
	timeout   time.Duration
}

type Option func(*Locator)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Locator) {
		if c != nil {
			l.client = c
		}
	}
}

func WithObjectStore(s ObjectStore) Option {
	return func(l *Locator) { l.objects = s }
}

func WithUserAgent(ua string) Option {
	return func(l *Locator) { l.userAgent = ua }
}

// WithTimeout bounds every remote request issued by the locator, whichever
// client it ends up using.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) { l.timeout = d }
}

func NewLocator(log *logger.Logger, opts ...Option) *Locator {
	if log == nil {
		log = logger.NewNop()
	}
	l := &Locator{
		log: log.With("service", "ResourceLocator"),
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.timeout > 0 {
		c := *l.client
		c.Timeout = l.timeout
		l.client = &c
	}
	return l
}

// Exists reports whether p names an existing file. Failures of any kind
// degrade to false; an unreachable location is information for the caller,
// not an error.
func (l *Locator) Exists(ctx context.Context, p string) bool {
	switch KindOf(p) {
	case KindHTTP:
		return l.existsHTTP(ctx, p)
	case KindGCS:
		return l.existsObject(ctx, p)
	default:
		_, err := os.Stat(p)
		return err == nil
	}
}

func (l *Locator) existsHTTP(ctx context.Context, p string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p, nil)
	if err != nil {
		l.log.Warn("File does not exist at URL", "url", p, "error", err)
		return false
	}
	l.decorate(req)
	resp, err := l.client.Do(req)
	if err != nil {
		l.log.Warn("File does not exist at URL", "url", p, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		l.log.Warn("File does not exist at URL", "url", p, "status", resp.StatusCode)
		return false
	}
	return true
}

func (l *Locator) existsObject(ctx context.Context, p string) bool {
	if l.objects == nil {
		l.log.Warn("Object storage location probed without a configured store", "path", p)
		return false
	}
	bucket, object, err := splitObjectPath(p)
	if err != nil {
		l.log.Warn("File does not exist in object storage", "path", p, "error", err)
		return false
	}
	ok, err := l.objects.Exists(ctx, bucket, object)
	if err != nil {
		l.log.Warn("File does not exist in object storage", "path", p, "error", err)
		return false
	}
	return ok
}

// Read returns the text stored at p. Every failure is a *FetchError.
func (l *Locator) Read(ctx context.Context, p string) (string, error) {
	kind := KindOf(p)
	var (
		raw []byte
		err error
	)
	switch kind {
	case KindHTTP:
		raw, err = l.readHTTP(ctx, p)
	case KindGCS:
		raw, err = l.readObject(ctx, p)
	default:
		raw, err = readFile(p)
	}
	if err == nil && !utf8.Valid(raw) {
		err = ErrInvalidEncoding
	}
	if err != nil {
		l.log.Error("Failed to read manifest file", "path", p, "kind", kind.String(), "error", err)
		return "", &FetchError{Path: p, Kind: kind, Err: err}
	}
	return string(bytes.TrimPrefix(raw, utf8BOM)), nil
}

func (l *Locator) readHTTP(ctx context.Context, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	l.decorate(req)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func (l *Locator) readObject(ctx context.Context, p string) ([]byte, error) {
	if l.objects == nil {
		return nil, ErrNoObjectStore
	}
	bucket, object, err := splitObjectPath(p)
	if err != nil {
		return nil, err
	}
	rc, err := l.objects.Open(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc)
}

func readFile(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// readLimited reads all of r, failing rather than truncating past maxReadBytes.
func readLimited(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxReadBytes {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, maxReadBytes)
	}
	return raw, nil
}

func (l *Locator) decorate(req *http.Request) {
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
}
