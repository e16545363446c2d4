package omeka

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

// ErrTemplatesNotLoaded is returned by TemplateByName when neither
// PreloadPartial nor PreloadFull has run.
var ErrTemplatesNotLoaded = errors.New(
	"templates must be preloaded before lookup by name",
	errors.CategoryOperation,
).WithTextCode("TEMPLATES_NOT_LOADED")

const (
	textCodeMalformed        = "MALFORMED_PAYLOAD"
	textCodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	textCodeValueType        = "VALUE_TYPE_MISMATCH"
	textCodeNotPersisted     = "ITEM_NOT_PERSISTED"
)

func malformed(err error, what string) error {
	return errors.Wrap(err, errors.CategoryBadInput, "decode "+what).
		WithTextCode(textCodeMalformed)
}

func templateNotFound(label string) error {
	return errors.New(fmt.Sprintf("template %q not found", label), errors.CategoryNotFound).
		WithTextCode(textCodeTemplateNotFound).
		WithMetadata(map[string]any{"label": label})
}
