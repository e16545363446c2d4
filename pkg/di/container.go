package di

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/config"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/goliatone/go-omeka-mapper/transport"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// Container owns the collaborators of one API session: the transport, the
// property and template caches, the metrics and the omeka.Session built on
// top of them. Two containers never share a cache entry.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	metrics       *metrics.Metrics
	transport     *transport.Client
	propertyCache cache.CacheService
	templateCache cache.CacheService
	keySerializer cache.KeySerializer
	session       *omeka.Session
}

// Option customizes NewContainer.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	logOutput  io.Writer
	doer       transport.Doer
	registerer prometheus.Registerer
	shared     cache.CacheService
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOutput sets where the configured logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithHTTPClient replaces the HTTP client. The configured timeout is not
// applied to it.
func WithHTTPClient(d transport.Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithRegisterer registers the session metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithCacheService stores properties and templates in svc instead of two
// services built from the configuration. Keys are prefixed with a per
// container id, so containers sharing svc still never share an entry.
func WithCacheService(svc cache.CacheService) Option {
	return func(o *options) { o.shared = svc }
}

// NewContainer validates cfg and wires a session for it.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = cfg.Logger(o.logOutput)
	}

	m := metrics.New()
	if err := m.Register(o.registerer); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "register metrics")
	}

	topts := []transport.Option{
		transport.WithCredentials(cfg.KeyIdentity, cfg.KeyCredential),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithLogger(logger),
		transport.WithMetrics(m),
	}
	if o.doer != nil {
		topts = append(topts, transport.WithHTTPClient(o.doer))
	} else {
		topts = append(topts, transport.WithTimeout(cfg.Timeout))
	}
	client, err := transport.New(cfg.API, topts...)
	if err != nil {
		return nil, err
	}

	propertyCache, templateCache, keySerializer, err := caches(cfg, o.shared)
	if err != nil {
		return nil, err
	}

	session := omeka.NewSession(client, propertyCache, templateCache,
		omeka.WithLogger(logger),
		omeka.WithMetrics(m),
		omeka.WithKeySerializer(keySerializer),
		omeka.WithPageSize(cfg.PageSize),
	)

	return &Container{
		config:        cfg,
		logger:        logger,
		metrics:       m,
		transport:     client,
		propertyCache: propertyCache,
		templateCache: templateCache,
		keySerializer: keySerializer,
		session:       session,
	}, nil
}

func caches(cfg config.Config, shared cache.CacheService) (cache.CacheService, cache.CacheService, cache.KeySerializer, error) {
	if shared != nil {
		return shared, shared, cache.NewPrefixedKeySerializer(uuid.NewString()), nil
	}

	propertyCache, err := cache.NewCacheService(cfg.PropertyCache)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.CategoryBadInput, "property cache")
	}
	templateCache, err := cache.NewCacheService(cfg.TemplateCache)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.CategoryBadInput, "template cache")
	}
	return propertyCache, templateCache, cache.NewDefaultKeySerializer(), nil
}

// NewContainerFromViper loads the configuration through config.Load and
// builds a container for it.
func NewContainerFromViper(v *viper.Viper, file string, opts ...Option) (*Container, error) {
	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

// Session returns the session wired by the container.
func (c *Container) Session() *omeka.Session {
	return c.session
}

// Transport returns the HTTP collaborator.
func (c *Container) Transport() *transport.Client {
	return c.transport
}

// Metrics returns the session metrics.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// PropertyCache returns the service backing the property catalog.
func (c *Container) PropertyCache() cache.CacheService {
	return c.propertyCache
}

// TemplateCache returns the service backing the full template cache.
func (c *Container) TemplateCache() cache.CacheService {
	return c.templateCache
}

// KeySerializer returns the key serializer shared by the caches.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Reset empties every cache of the session.
func (c *Container) Reset(ctx context.Context) error {
	return c.session.Reset(ctx)
}
