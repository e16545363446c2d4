// Package omeka maps resources of an Omeka S style REST API to typed records
// and back.
//
// A Session owns the caches of one API configuration:
//
//   - PropertyCatalog caches property definitions by id.
//   - TemplateRegistry caches partial (id and label) and full (property
//     resolved) templates.
//   - ItemCache guarantees that at most one *Item exists per item id.
//
// An Engine is bound to one full template and converts raw item payloads into
// Records (Materialize) and Records back into write payloads (Serialize).
// Items register in the ItemCache before they are filled, so items that
// reference each other resolve to the same instances when deep resolution is
// requested.
//
//	s := omeka.NewSession(client, propertyCache, templateCache)
//	if err := s.Templates.PreloadPartial(ctx); err != nil {
//		return err
//	}
//	tmpl, err := s.Templates.TemplateByName(ctx, "datalogger (sensor device)")
//	...
//	items, err := s.Items.ListByTemplate(ctx, tmpl, false)
package omeka
