package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/JonMunkholm/GDPExplorer/internal/geo"
	"github.com/JonMunkholm/GDPExplorer/internal/logging"
	"github.com/JonMunkholm/GDPExplorer/internal/memo"
)

// DefaultMaxFileSize bounds how many bytes are read from one source.
const DefaultMaxFileSize int64 = 32 << 20

// uploadPrefix separates uploaded content from files in cache keys.
const uploadPrefix = "upload:"

var errIsDirectory = errors.New("is a directory")

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	// Source is the dataset served by Dataset.
	Source      string
	MaxFileSize int64

	Cache memo.Policy
	Clock memo.Clock

	MaxConcurrent int
	MaxWait       time.Duration
}

// Service loads, cleans and memoizes datasets.
type Service struct {
	pipeline *Pipeline
	source   string
	maxSize  int64
	cache    *memo.Cache[*Dataset]
	limiter  *CleanLimiter
}

// NewService creates a Service around pipeline.
func NewService(pipeline *Pipeline, opts ServiceOptions) (*Service, error) {
	if pipeline == nil {
		return nil, errors.New("nil pipeline")
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	cache, err := memo.New[*Dataset](opts.Cache, opts.Clock)
	if err != nil {
		return nil, fmt.Errorf("create dataset cache: %w", err)
	}

	return &Service{
		pipeline: pipeline,
		source:   opts.Source,
		maxSize:  opts.MaxFileSize,
		cache:    cache,
		limiter:  NewCleanLimiter(opts.MaxConcurrent, opts.MaxWait),
	}, nil
}

// Source returns the configured dataset path.
func (s *Service) Source() string {
	return s.source
}

// Dataset loads the configured source.
func (s *Service) Dataset(ctx context.Context) (*Dataset, error) {
	return s.Load(ctx, s.source)
}

// Load reads path and returns its cleaned dataset, computing it at most once
// per distinct content. When the file cannot be read the result is an empty
// dataset and a *SourceError.
func (s *Service) Load(ctx context.Context, path string) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return EmptyDataset(path), err
	}

	content, err := s.readFile(path)
	if err != nil {
		logging.FromContext(ctx).Warn("source unavailable", "source", path, "error", err)
		return EmptyDataset(path), err
	}
	return s.clean(ctx, path, path, content)
}

// CleanUpload cleans content posted by a client. Nothing is written to disk.
// The number of simultaneous uploads is bounded; excess requests wait and
// then fail with ErrTooManyCleans.
func (s *Service) CleanUpload(ctx context.Context, name string, r io.Reader) (*Dataset, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return EmptyDataset(name), err
	}
	defer s.limiter.Release()

	content, err := readLimited(name, r, s.maxSize)
	if err != nil {
		return EmptyDataset(name), err
	}
	return s.clean(ctx, uploadPrefix+name, name, content)
}

func (s *Service) clean(ctx context.Context, key, source string, content []byte) (*Dataset, error) {
	ds, err := s.cache.Get(memo.KeyFor(key, content), func() (*Dataset, error) {
		start := time.Now()
		ds, err := s.pipeline.Clean(source, content)
		if err != nil {
			return nil, err
		}

		res := ds.report.Resolution
		logging.WithFields(ctx, "source", source, "dataset_id", ds.id).Info("dataset cleaned",
			"rows", ds.Len(),
			"exact", res.Exact,
			"fuzzy", res.Fuzzy,
			"unresolved", res.Unresolved,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return ds, nil
	})
	if err != nil {
		return EmptyDataset(source), err
	}
	return ds, nil
}

// Resolve resolves a single country name with the pipeline's resolver.
func (s *Service) Resolve(name string) geo.Match {
	if s.pipeline.Resolver == nil {
		return geo.Match{Method: geo.MethodNone, Input: name}
	}
	return s.pipeline.Resolver.Resolve(name)
}

// Invalidate drops every cached dataset for path.
func (s *Service) Invalidate(path string) int {
	return s.cache.InvalidateSource(path)
}

// CacheStats returns dataset cache counters.
func (s *Service) CacheStats() memo.Stats {
	return s.cache.Stats()
}

// LimiterStatus returns the upload limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Shutdown waits for in-flight uploads to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// readFile performs the one blocking read of a source file.
func (s *Service) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sourceErr(path, "open", unwrapPath(err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, sourceErr(path, "stat", unwrapPath(err))
	}
	if info.IsDir() {
		return nil, sourceErr(path, "open", errIsDirectory)
	}
	if info.Size() > s.maxSize {
		return nil, sourceErr(path, "stat", fmt.Errorf("%w: %d bytes exceeds %d", ErrSourceTooLarge, info.Size(), s.maxSize))
	}
	return readLimited(path, f, s.maxSize)
}

func readLimited(source string, r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, sourceErr(source, "read", unwrapPath(err))
	}
	if int64(len(data)) > limit {
		return nil, sourceErr(source, "read", fmt.Errorf("%w: exceeds %d bytes", ErrSourceTooLarge, limit))
	}
	return data, nil
}

// unwrapPath drops the *fs.PathError wrapper; SourceError already names the path.
func unwrapPath(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
