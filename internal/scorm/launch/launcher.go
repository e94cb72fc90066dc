package launch

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/scormbridge/internal/observability"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/scorm/manifest"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
)

const (
	IMSManifest = "imsmanifest.xml"
	CSFManifest = "CSF.xml"
)

// ConventionalEntries are tried in order when no manifest names an entry.
var ConventionalEntries = []string{"index.html", "launch.html", "default.html", "story.html"}

type Probe interface {
	Exists(ctx context.Context, path string) bool
}

type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Source is what the launcher needs from the file layer. *resource.Locator
// satisfies it.
type Source interface {
	Probe
	Reader
}

type Launcher struct {
	log      *logger.Logger
	source   Source
	resolver *manifest.Resolver
	sniff    bool
}

type Option func(*Launcher)

// WithoutSniffing tags every imsmanifest.xml as SCORM 1.2 instead of reading
// its schemaversion and namespaces first.
func WithoutSniffing() Option {
	return func(l *Launcher) { l.sniff = false }
}

func New(log *logger.Logger, source Source, opts ...Option) *Launcher {
	if log == nil {
		log = logger.NewNop()
	}
	l := &Launcher{
		log:      log.With("service", "LaunchOrchestrator"),
		source:   source,
		resolver: manifest.NewResolver(log),
		sniff:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch returns the descriptor for the package at root. A manifest that
// exists but cannot be read fails the launch with a *resource.FetchError.
// When nothing is found the error is a *NoEntryPointError.
func (l *Launcher) Launch(ctx context.Context, root string) (Descriptor, error) {
	res, err := l.Resolve(ctx, root)
	if err != nil {
		return Descriptor{}, err
	}
	return res.Descriptor, nil
}

// Resolve is Launch with details about the strategy that succeeded.
func (l *Launcher) Resolve(ctx context.Context, root string) (res Resolution, err error) {
	root = normalizeRoot(root)
	ctx, span := observability.Tracer().Start(ctx, "launch.Resolve")
	span.SetAttributes(attribute.String("scorm.root", root))
	defer func() {
		outcome := "ok"
		switch {
		case err == nil:
			span.SetAttributes(
				attribute.String("scorm.strategy", string(res.Strategy)),
				attribute.String("scorm.file_name", res.FileName),
			)
		case isNoEntry(err):
			outcome = "no_entry_point"
			span.SetStatus(codes.Error, err.Error())
		default:
			outcome = "fetch_failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RecordLaunch(outcome, string(res.Strategy))
		span.End()
	}()

	imsPath := resource.Join(root, IMSManifest)
	csfPath := resource.Join(root, CSFManifest)
	hasIMS, hasCSF := l.probeManifests(ctx, imsPath, csfPath)

	var (
		manifestPath string
		manifestName string
		dialect      manifest.Dialect
	)
	switch {
	case hasIMS:
		manifestPath, manifestName, dialect = imsPath, IMSManifest, manifest.SCORM12
	case hasCSF:
		manifestPath, manifestName, dialect = csfPath, CSFManifest, manifest.SCORM11
	}

	if manifestPath != "" {
		text, err := l.source.Read(ctx, manifestPath)
		if err != nil {
			l.log.Error("Error reading SCORM manifest", "root", root, "manifest", manifestPath, "error", err)
			return Resolution{}, err
		}
		if hasIMS && l.sniff {
			dialect = manifest.Sniff(text)
		}
		if href, ok := l.resolver.Resolve(text, dialect); ok {
			if entry, ok := relativeEntry(href); ok {
				l.log.Info("Resolved SCORM launch file", "root", root, "file", entry, "dialect", string(dialect))
				return Resolution{
					Descriptor: Descriptor{BasePath: root, FileName: entry},
					Strategy:   StrategyManifest,
					Manifest:   manifestName,
					Dialect:    dialect,
				}, nil
			}
			l.log.Warn("Ignoring absolute launch location in manifest", "root", root, "href", href)
		}
	}

	for _, name := range ConventionalEntries {
		if l.exists(ctx, resource.Join(root, name)) {
			l.log.Info("Using conventional SCORM launch file", "root", root, "file", name)
			return Resolution{
				Descriptor: Descriptor{BasePath: root, FileName: name},
				Strategy:   StrategyConvention,
			}, nil
		}
	}

	l.log.Warn("No SCORM launch file found", "root", root)
	return Resolution{}, &NoEntryPointError{Root: root}
}

// probeManifests checks both manifest names at once and waits for both.
func (l *Launcher) probeManifests(ctx context.Context, imsPath, csfPath string) (hasIMS, hasCSF bool) {
	var g errgroup.Group
	g.Go(func() error {
		hasIMS = l.exists(ctx, imsPath)
		return nil
	})
	g.Go(func() error {
		hasCSF = l.exists(ctx, csfPath)
		return nil
	})
	_ = g.Wait()
	return hasIMS, hasCSF
}

func (l *Launcher) exists(ctx context.Context, p string) bool {
	start := time.Now()
	ok := l.source.Exists(ctx, p)
	observability.RecordProbe(resource.KindOf(p).String(), ok, time.Since(start))
	return ok
}

func isNoEntry(err error) bool {
	var target *NoEntryPointError
	return errors.As(err, &target)
}
