package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/memory"
)

// StorePrefix marks a source naming a document in the spec store.
const StorePrefix = "store:"

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxSize      = 20 * 1024 * 1024
)

// Store resolves a named spec document, e.g. from the Postgres spec registry.
type Store interface {
	SpecContent(ctx context.Context, name string) ([]byte, error)
}

// Options configures how sources are fetched and parsed.
type Options struct {
	HTTPClient *http.Client
	MaxSize    int64
	Store      Store
	Logger     *logging.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithMaxSize caps the size of a spec document in bytes.
func WithMaxSize(n int64) Option {
	return func(o *Options) { o.MaxSize = n }
}

// WithStore enables "store:<name>" sources.
func WithStore(s Store) Option {
	return func(o *Options) { o.Store = s }
}

// WithLogger sets the logger used for parse warnings.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(opts []Option) *Options {
	o := &Options{MaxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if o.Logger == nil {
		o.Logger = logging.NewSilent()
	}
	return o
}

// fetch returns the raw document for source and, for URL sources, the
// location relative server URLs resolve against.
func fetch(ctx context.Context, source string, o *Options) ([]byte, *url.URL, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil, apperrors.Load(source, errors.New("no specification source given"))
	}

	switch {
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		loc, err := url.Parse(source)
		if err != nil {
			return nil, nil, apperrors.Load(source, err)
		}
		data, err := fetchURL(ctx, source, o)
		if err != nil {
			return nil, nil, err
		}
		return data, loc, nil

	case strings.HasPrefix(source, StorePrefix):
		name := strings.TrimPrefix(source, StorePrefix)
		if o.Store == nil {
			return nil, nil, apperrors.Load(source, errors.New("spec store is not configured (set DATABASE_URL)"))
		}
		data, err := o.Store.SpecContent(ctx, name)
		if err != nil {
			return nil, nil, apperrors.Load(source, err)
		}
		return data, nil, nil
	}

	data, err := readFile(ctx, source, o)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

func fetchURL(ctx context.Context, source string, o *Options) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, apperrors.Load(source, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.8")

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, apperrors.Load(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Load(source, fmt.Errorf("HTTP %d when fetching spec", resp.StatusCode))
	}

	data, err := memory.ReadAllLimited(ctx, resp.Body, o.MaxSize)
	if err != nil {
		return nil, apperrors.Load(source, err)
	}
	o.Logger.Debug().Str("source", source).Int("bytes", len(data)).Msg("fetched specification")
	return data, nil
}

func readFile(ctx context.Context, path string, o *Options) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, apperrors.Load(path, err)
	}
	defer f.Close()

	data, err := memory.ReadAllLimited(ctx, f, o.MaxSize)
	if err != nil {
		return nil, apperrors.Load(path, err)
	}
	return data, nil
}
