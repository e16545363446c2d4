package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/config"
	"github.com/goliatone/go-omeka-mapper/pkg/testsupport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *testsupport.FakeAPI {
	t.Helper()

	api := testsupport.NewFakeAPI()
	t.Cleanup(api.Close)

	api.AddProperty(1, "dcterms:title", "Title")
	api.AddProperty(2, "dcterms:identifier", "Identifier")
	api.AddProperty(3, "dcterms:description", "Description")
	api.AddTemplate(10, "device", 0,
		testsupport.Binding{PropertyID: 1},
		testsupport.Binding{PropertyID: 2},
	)
	api.AddItem(testsupport.ItemFixture{
		ID:         100,
		TemplateID: 10,
		Values: map[string][]map[string]any{
			"dcterms:title": {testsupport.LiteralValue(1, "node-001")},
		},
	})
	return api
}

func testConfig(api string) config.Config {
	cfg := config.Default()
	cfg.API = api
	return cfg
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewContainer(t *testing.T) {
	api := newAPI(t)
	cfg := testConfig(api.URL())
	cfg.PropertyCache = cache.Config{
		Capacity:           500,
		NumShards:          8,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}

	container, err := NewContainer(cfg, quiet())
	require.NoError(t, err)
	require.NotNil(t, container)

	assert.NotNil(t, container.Session())
	assert.NotNil(t, container.Session().Properties)
	assert.NotNil(t, container.Session().Templates)
	assert.NotNil(t, container.Session().Items)
	assert.NotNil(t, container.Session().Cache)
	assert.NotNil(t, container.Transport())
	assert.NotNil(t, container.Metrics())
	assert.NotNil(t, container.PropertyCache())
	assert.NotNil(t, container.TemplateCache())
	assert.NotNil(t, container.KeySerializer())
	assert.NotNil(t, container.Logger())

	stored := container.Config()
	assert.Equal(t, cfg.API, stored.API)
	assert.Equal(t, 500, stored.PropertyCache.Capacity)
	assert.Equal(t, time.Hour, stored.PropertyCache.TTL)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing api", func(c *config.Config) { c.API = "" }},
		{"relative api", func(c *config.Config) { c.API = "/api" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"bad cache", func(c *config.Config) { c.TemplateCache.Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://example.org/api")
			tt.mutate(&cfg)

			container, err := NewContainer(cfg, quiet())
			require.Error(t, err)
			assert.Nil(t, container)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestContainer_EndToEnd(t *testing.T) {
	api := newAPI(t)
	container, err := NewContainer(testConfig(api.URL()), quiet())
	require.NoError(t, err)

	ctx := context.Background()
	session := container.Session()

	require.NoError(t, session.Templates.PreloadPartial(ctx))
	tmpl, err := session.Templates.TemplateByName(ctx, "device")
	require.NoError(t, err)
	assert.Equal(t, int64(10), tmpl.ID)

	it, err := session.Items.Item(ctx, 100, false)
	require.NoError(t, err)

	field, ok := it.Get("dcterms:title")
	require.True(t, ok)
	assert.Equal(t, "node-001", field.Interface())
}

func TestContainer_Credentials(t *testing.T) {
	api := newAPI(t)
	cfg := testConfig(api.URL())
	cfg.KeyIdentity = "ident"
	cfg.KeyCredential = "secret"

	container, err := NewContainer(cfg, quiet())
	require.NoError(t, err)

	_, err = container.Session().Properties.Property(context.Background(), 1)
	require.NoError(t, err)

	requests := api.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "ident", requests[0].Query.Get("key_identity"))
	assert.Equal(t, "secret", requests[0].Query.Get("key_credential"))
}

func TestContainer_PageSize(t *testing.T) {
	api := newAPI(t)
	cfg := testConfig(api.URL())
	cfg.PageSize = 2

	container, err := NewContainer(cfg, quiet())
	require.NoError(t, err)

	require.NoError(t, container.Session().Properties.PreloadAll(context.Background()))
	assert.Equal(t, 3, container.Session().Properties.Len())

	pages := 0
	for _, r := range api.Requests() {
		if r.Path == testsupport.APIPath+"/properties" {
			pages++
			assert.Equal(t, "2", r.Query.Get("per_page"))
		}
	}
	assert.Equal(t, 2, pages)
}

func TestContainer_Metrics(t *testing.T) {
	api := newAPI(t)
	reg := prometheus.NewRegistry()

	container, err := NewContainer(testConfig(api.URL()), quiet(), WithRegisterer(reg))
	require.NoError(t, err)

	ctx := context.Background()
	catalog := container.Session().Properties
	_, err = catalog.Property(ctx, 1)
	require.NoError(t, err)
	_, err = catalog.Property(ctx, 1)
	require.NoError(t, err)

	m := container.Metrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("property", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("property", "hit")))

	count, err := testutil.GatherAndCount(reg, "omeka_transport_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second session cannot register the same collectors.
	_, err = NewContainer(testConfig(api.URL()), quiet(), WithRegisterer(reg))
	require.Error(t, err)
	assert.True(t, errors.IsInternal(err))
}

func TestContainer_IsolatedSessions(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	first, err := NewContainer(testConfig(api.URL()), quiet())
	require.NoError(t, err)
	second, err := NewContainer(testConfig(api.URL()), quiet())
	require.NoError(t, err)

	a, err := first.Session().Properties.Property(ctx, 1)
	require.NoError(t, err)
	b, err := second.Session().Properties.Property(ctx, 1)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, api.Count("GET", testsupport.APIPath+"/properties/1"))
}

func TestContainer_SharedCacheService(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	svc, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	first, err := NewContainer(testConfig(api.URL()), quiet(), WithCacheService(svc))
	require.NoError(t, err)
	second, err := NewContainer(testConfig(api.URL()), quiet(), WithCacheService(svc))
	require.NoError(t, err)

	assert.Same(t, svc, first.PropertyCache())
	assert.Same(t, svc, first.TemplateCache())

	a, err := first.Session().Properties.Property(ctx, 1)
	require.NoError(t, err)
	b, err := second.Session().Properties.Property(ctx, 1)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, svc.Size())
	assert.Equal(t, 2, api.Count("GET", testsupport.APIPath+"/properties/1"))

	require.NoError(t, first.Reset(ctx))
	assert.Equal(t, 1, svc.Size())

	again, err := second.Session().Properties.Property(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, b, again)
}

func TestContainer_Reset(t *testing.T) {
	api := newAPI(t)
	container, err := NewContainer(testConfig(api.URL()), quiet())
	require.NoError(t, err)

	ctx := context.Background()
	session := container.Session()

	_, err = session.Items.Item(ctx, 100, false)
	require.NoError(t, err)
	require.Equal(t, 1, session.Cache.Len())
	require.Equal(t, 1, session.Templates.Len())

	require.NoError(t, container.Reset(ctx))
	assert.Equal(t, 0, session.Cache.Len())
	assert.Equal(t, 0, session.Templates.Len())
	assert.Equal(t, 0, session.Properties.Len())

	_, err = session.Items.Item(ctx, 100, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Count("GET", testsupport.APIPath+"/items/100"))
}

func TestNewContainerFromViper(t *testing.T) {
	api := newAPI(t)
	t.Setenv("OMEKA_API", api.URL())
	t.Setenv("OMEKA_PAGE_SIZE", "5")

	container, err := NewContainerFromViper(viper.New(), "", quiet())
	require.NoError(t, err)

	assert.Equal(t, api.URL(), container.Config().API)
	assert.Equal(t, 5, container.Config().PageSize)

	_, err = container.Session().Properties.Property(context.Background(), 2)
	require.NoError(t, err)
}

func TestNewContainerFromViper_Invalid(t *testing.T) {
	t.Setenv("OMEKA_API", "")

	_, err := NewContainerFromViper(viper.New(), "", quiet())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
