package omeka

import (
	"log/slog"
	"net/url"
	"strconv"

	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
)

// Option configures the components of a Session.
type Option func(*settings)

type settings struct {
	logger        *slog.Logger
	metrics       *metrics.Metrics
	keySerializer cache.KeySerializer
	pageSize      int
}

// WithLogger sets the base logger. Components derive their own with a
// "component" attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithKeySerializer sets the serializer used for property and template cache
// keys.
func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(s *settings) { s.keySerializer = ks }
}

// WithPageSize requests pages of n entries from listing endpoints. Zero keeps
// the server default.
func WithPageSize(n int) Option {
	return func(s *settings) { s.pageSize = n }
}

func newSettings(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.keySerializer == nil {
		s.keySerializer = cache.NewDefaultKeySerializer()
	}
	return s
}

func (s settings) component(name string) *slog.Logger {
	return s.logger.With("component", name)
}

func (s settings) listQuery(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if s.pageSize > 0 {
		q.Set("per_page", strconv.Itoa(s.pageSize))
	}
	return q
}
