package omeka_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/goliatone/go-omeka-mapper/pkg/testsupport"
	"github.com/goliatone/go-omeka-mapper/transport"
	"github.com/stretchr/testify/require"
)

const (
	propTitle       int64 = 1
	propIdentifier  int64 = 2
	propIsPartOf    int64 = 3
	propSource      int64 = 4
	propHostedBy    int64 = 5
	propDescription int64 = 6

	tmplDevice  int64 = 10
	tmplChannel int64 = 11
	tmplLinked  int64 = 12

	classDevice int64 = 40
	itemSet     int64 = 7

	deviceLabel  = "datalogger (sensor device)"
	channelLabel = "datalogger (sensor channel)"
)

// newWorld serves six properties, three templates, a device, a channel hosted
// by the device and a pair of items referencing each other.
func newWorld(t *testing.T) *testsupport.FakeAPI {
	t.Helper()

	api := testsupport.NewFakeAPI()
	t.Cleanup(api.Close)

	api.AddProperty(propTitle, "dcterms:title", "Title")
	api.AddProperty(propIdentifier, "dcterms:identifier", "Identifier")
	api.AddProperty(propIsPartOf, "dcterms:isPartOf", "Is Part Of")
	api.AddProperty(propSource, "dcterms:source", "Source")
	api.AddProperty(propHostedBy, "sosa:isHostedBy", "is hosted by")
	api.AddProperty(propDescription, "dcterms:description", "Description")

	api.AddTemplate(tmplDevice, deviceLabel, classDevice,
		testsupport.Binding{PropertyID: propTitle, Required: true},
		testsupport.Binding{PropertyID: propIdentifier},
		testsupport.Binding{PropertyID: propSource, DataTypes: []string{"uri"}},
		testsupport.Binding{PropertyID: propDescription},
	)
	api.AddTemplate(tmplChannel, channelLabel, 0,
		testsupport.Binding{PropertyID: propTitle, Required: true},
		testsupport.Binding{PropertyID: propHostedBy, DataTypes: []string{"resource:item"}},
	)
	api.AddTemplate(tmplLinked, "linked", 0,
		testsupport.Binding{PropertyID: propTitle},
		testsupport.Binding{PropertyID: propIsPartOf, DataTypes: []string{"resource:item"}},
	)

	api.AddItem(testsupport.ItemFixture{
		ID:         100,
		TemplateID: tmplDevice,
		ItemSetID:  itemSet,
		Values: map[string][]map[string]any{
			"dcterms:title": {testsupport.LiteralValue(propTitle, "node-007")},
			"dcterms:identifier": {
				testsupport.LiteralValue(propIdentifier, "a"),
				testsupport.LiteralValue(propIdentifier, "b"),
			},
			"dcterms:source": {testsupport.URIValue(propSource, "https://example.org/node-007", "node 7")},
		},
	})
	api.AddItem(testsupport.ItemFixture{
		ID:         200,
		TemplateID: tmplChannel,
		Values: map[string][]map[string]any{
			"dcterms:title":   {testsupport.LiteralValue(propTitle, "node-007-temp")},
			"sosa:isHostedBy": {testsupport.ResourceValue(propHostedBy, 100)},
		},
	})
	api.AddItem(testsupport.ItemFixture{
		ID:         300,
		TemplateID: tmplLinked,
		Values: map[string][]map[string]any{
			"dcterms:title":    {testsupport.LiteralValue(propTitle, "A")},
			"dcterms:isPartOf": {testsupport.ResourceValue(propIsPartOf, 301)},
		},
	})
	api.AddItem(testsupport.ItemFixture{
		ID:         301,
		TemplateID: tmplLinked,
		Values: map[string][]map[string]any{
			"dcterms:title":    {testsupport.LiteralValue(propTitle, "B")},
			"dcterms:isPartOf": {testsupport.ResourceValue(propIsPartOf, 300)},
		},
	})

	return api
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T, api *testsupport.FakeAPI, opts ...omeka.Option) *omeka.Session {
	t.Helper()

	client, err := transport.New(api.URL(), transport.WithLogger(quietLogger()))
	require.NoError(t, err)

	properties, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	templates, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	opts = append([]omeka.Option{omeka.WithLogger(quietLogger())}, opts...)
	return omeka.NewSession(client, properties, templates, opts...)
}

func scalar(t *testing.T, it *omeka.Item, term string) any {
	t.Helper()

	f, ok := it.Get(term)
	require.True(t, ok, "term %s missing", term)
	require.False(t, f.IsList(), "term %s is a list", term)
	v, _ := f.First()
	return v.Interface()
}
