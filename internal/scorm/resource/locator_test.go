package resource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"/var/packages/course":           KindLocal,
		"relative/course":                KindLocal,
		"http://cdn.example.com/course":  KindHTTP,
		"https://cdn.example.com/course": KindHTTP,
		"gs://bucket/course":             KindGCS,
		"HTTP://cdn.example.com/course":  KindLocal,
		"ftp://example.com/course":       KindLocal,
	}
	for in, want := range cases {
		assert.Equal(t, want, KindOf(in), in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/c/imsmanifest.xml", Join("https://cdn.example.com/c/", "imsmanifest.xml"))
	assert.Equal(t, "gs://b/c/CSF.xml", Join("gs://b/c", "/CSF.xml"))
	assert.Equal(t, filepath.Join("pkg", "index.html"), Join("pkg/", "index.html"))
}

func newPackageServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExistsRemote(t *testing.T) {
	srv := newPackageServer(t, map[string]string{"/course/imsmanifest.xml": "<manifest/>"})
	l := NewLocator(nil)
	ctx := context.Background()

	assert.True(t, l.Exists(ctx, srv.URL+"/course/imsmanifest.xml"))
	assert.False(t, l.Exists(ctx, srv.URL+"/course/CSF.xml"))
}

func TestExistsRemoteUnreachableIsFalse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.False(t, NewLocator(nil).Exists(context.Background(), url+"/imsmanifest.xml"))
}

func TestExistsRemoteRequiresExactly200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	assert.False(t, NewLocator(nil).Exists(context.Background(), srv.URL+"/index.html"))
}

func TestExistsLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html/>"), 0o644))
	l := NewLocator(nil)

	assert.True(t, l.Exists(context.Background(), filepath.Join(dir, "index.html")))
	assert.False(t, l.Exists(context.Background(), filepath.Join(dir, "missing.html")))
}

func TestReadRemote(t *testing.T) {
	srv := newPackageServer(t, map[string]string{"/c/imsmanifest.xml": "<manifest/>"})
	l := NewLocator(nil, WithUserAgent("scormbridge-test"))

	got, err := l.Read(context.Background(), srv.URL+"/c/imsmanifest.xml")
	require.NoError(t, err)
	assert.Equal(t, "<manifest/>", got)
}

func TestReadRemoteNonSuccessIsFetchError(t *testing.T) {
	srv := newPackageServer(t, nil)
	target := srv.URL + "/c/imsmanifest.xml"

	_, err := NewLocator(nil).Read(context.Background(), target)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, target, fe.Path)
	assert.Equal(t, KindHTTP, fe.Kind)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestReadLocalStripsBOM(t *testing.T) {
	p := filepath.Join(t.TempDir(), "imsmanifest.xml")
	require.NoError(t, os.WriteFile(p, append([]byte{0xEF, 0xBB, 0xBF}, "<manifest/>"...), 0o644))

	got, err := NewLocator(nil).Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "<manifest/>", got)
}

func TestReadLocalFailures(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "imsmanifest.xml")

	_, err := NewLocator(nil).Read(context.Background(), missing)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, missing, fe.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	binary := filepath.Join(dir, "CSF.xml")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00}, 0o644))
	_, err = NewLocator(nil).Read(context.Background(), binary)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

type fakeObjects struct {
	objects map[string]string
	err     error
}

func (f *fakeObjects) Exists(_ context.Context, bucket, object string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.objects[bucket+"/"+object]
	return ok, nil
}

func (f *fakeObjects) Open(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestObjectStoreLocations(t *testing.T) {
	store := &fakeObjects{objects: map[string]string{"courses/intro/imsmanifest.xml": "<manifest/>"}}
	l := NewLocator(nil, WithObjectStore(store))
	ctx := context.Background()

	assert.True(t, l.Exists(ctx, "gs://courses/intro/imsmanifest.xml"))
	assert.False(t, l.Exists(ctx, "gs://courses/intro/CSF.xml"))
	assert.False(t, l.Exists(ctx, "gs://courses"))

	got, err := l.Read(ctx, "gs://courses/intro/imsmanifest.xml")
	require.NoError(t, err)
	assert.Equal(t, "<manifest/>", got)

	store.err = errors.New("backend down")
	assert.False(t, l.Exists(ctx, "gs://courses/intro/imsmanifest.xml"))
}

func TestObjectLocationWithoutStore(t *testing.T) {
	l := NewLocator(nil)
	assert.False(t, l.Exists(context.Background(), "gs://courses/intro/imsmanifest.xml"))

	_, err := l.Read(context.Background(), "gs://courses/intro/imsmanifest.xml")
	assert.ErrorIs(t, err, ErrNoObjectStore)
}

func TestReadRejectsOversizedContent(t *testing.T) {
	prev := maxReadBytes
	maxReadBytes = 16
	t.Cleanup(func() { maxReadBytes = prev })

	fits := "<manifest></man>"
	tooBig := "<manifest>......</manifest>"
	srv := newPackageServer(t, map[string]string{"/fits.xml": fits, "/big.xml": tooBig})
	dir := t.TempDir()
	local := filepath.Join(dir, "imsmanifest.xml")
	require.NoError(t, os.WriteFile(local, []byte(tooBig), 0o644))
	store := &fakeObjects{objects: map[string]string{"b/pkg/imsmanifest.xml": tooBig}}
	l := NewLocator(nil, WithObjectStore(store))
	ctx := context.Background()

	got, err := l.Read(ctx, srv.URL+"/fits.xml")
	require.NoError(t, err)
	assert.Equal(t, fits, got)

	for _, p := range []string{srv.URL + "/big.xml", local, "gs://b/pkg/imsmanifest.xml"} {
		_, err := l.Read(ctx, p)
		var fe *FetchError
		require.ErrorAs(t, err, &fe, p)
		assert.ErrorIs(t, err, ErrTooLarge, p)
	}
}

func TestTimeoutAppliesToSuppliedClient(t *testing.T) {
	supplied := &http.Client{}
	l := NewLocator(nil, WithTimeout(50*time.Millisecond), WithHTTPClient(supplied))

	assert.Equal(t, 50*time.Millisecond, l.client.Timeout)
	assert.Zero(t, supplied.Timeout, "caller's client is left untouched")

	l = NewLocator(nil, WithHTTPClient(supplied), WithTimeout(time.Second))
	assert.Equal(t, time.Second, l.client.Timeout)
}
