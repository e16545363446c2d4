package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// APIPath is the path below which FakeAPI serves its endpoints.
const APIPath = "/api"

// Binding declares one property of a fake resource template.
type Binding struct {
	PropertyID int64
	DataTypes  []string
	Required   bool
}

// ItemFixture describes a fake item. Values maps property terms to value
// objects as built by LiteralValue, URIValue and ResourceValue.
type ItemFixture struct {
	ID         int64
	TemplateID int64
	ItemSetID  int64
	Values     map[string][]map[string]any
	// Extra fields are copied into the payload verbatim and win over the
	// generated ones.
	Extra map[string]any
}

// RecordedRequest is a request received by FakeAPI.
type RecordedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        []byte
}

// FakeAPI is an in-process REST API serving properties, resource templates and
// items with Link header pagination. It accepts item creation (POST) and
// replacement (PUT) and records every request.
type FakeAPI struct {
	server *httptest.Server

	mu         sync.Mutex
	pageSize   int
	properties map[int64]map[string]any
	templates  map[int64]map[string]any
	items      map[int64]map[string]any
	nextItemID int64
	statuses   map[string]int
	requests   []RecordedRequest
}

// NewFakeAPI starts a FakeAPI. Close it when done.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		properties: make(map[int64]map[string]any),
		templates:  make(map[int64]map[string]any),
		items:      make(map[int64]map[string]any),
		nextItemID: 1000,
		statuses:   make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// URL is the API root to configure clients with.
func (f *FakeAPI) URL() string {
	return f.server.URL + APIPath
}

func (f *FakeAPI) Close() {
	f.server.Close()
}

// SetPageSize sets the default number of entries per listing page. Zero
// serves everything on one page. A per_page query parameter overrides it.
func (f *FakeAPI) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// SetStatus makes every request to path (e.g. "/api/items/7") fail with
// status. Zero clears it.
func (f *FakeAPI) SetStatus(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.statuses, path)
		return
	}
	f.statuses[path] = status
}

func (f *FakeAPI) AddProperty(id int64, term, label string) {
	prefix, local, _ := strings.Cut(term, ":")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties[id] = map[string]any{
		"@id":          f.server.URL + APIPath + "/properties/" + strconv.FormatInt(id, 10),
		"o:id":         id,
		"o:local_name": local,
		"o:label":      label,
		"o:comment":    label + " (" + prefix + ")",
		"o:term":       term,
	}
}

// AddTemplate adds a resource template. classID 0 leaves the class null.
func (f *FakeAPI) AddTemplate(id int64, label string, classID int64, bindings ...Binding) {
	props := make([]map[string]any, 0, len(bindings))
	for _, b := range bindings {
		var dataTypes any
		if len(b.DataTypes) > 0 {
			dataTypes = b.DataTypes
		}
		props = append(props, map[string]any{
			"o:property":        map[string]any{"@id": f.server.URL + APIPath + "/properties/" + strconv.FormatInt(b.PropertyID, 10), "o:id": b.PropertyID},
			"o:data_type":       dataTypes,
			"o:is_required":     b.Required,
			"o:alternate_label": nil,
		})
	}

	var class any
	if classID != 0 {
		class = map[string]any{"o:id": classID}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[id] = map[string]any{
		"@id":                          f.server.URL + APIPath + "/resource_templates/" + strconv.FormatInt(id, 10),
		"o:id":                         id,
		"o:label":                      label,
		"o:resource_class":             class,
		"o:resource_template_property": props,
	}
}

func (f *FakeAPI) AddItem(it ItemFixture) {
	obj := map[string]any{
		"@id":                 f.itemIRI(it.ID),
		"o:id":                it.ID,
		"o:resource_template": map[string]any{"o:id": it.TemplateID},
		"o:item_set":          []any{},
	}
	if it.ItemSetID != 0 {
		obj["o:item_set"] = []any{map[string]any{"o:id": it.ItemSetID}}
	}
	for term, values := range it.Values {
		obj[term] = values
	}
	for k, v := range it.Extra {
		obj[k] = v
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.ID] = obj
}

// Item returns a copy of the stored payload of item id.
func (f *FakeAPI) Item(id int64) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.items[id]
	if !ok {
		return nil, false
	}
	return copyObject(obj), true
}

// LiteralValue builds a literal value object.
func LiteralValue(propertyID int64, v any) map[string]any {
	return map[string]any{"type": "literal", "property_id": propertyID, "@value": v}
}

// URIValue builds a uri value object.
func URIValue(propertyID int64, iri, label string) map[string]any {
	out := map[string]any{"type": "uri", "property_id": propertyID, "@id": iri}
	if label != "" {
		out["o:label"] = label
	}
	return out
}

// ResourceValue builds a "resource:item" value object pointing at target.
func ResourceValue(propertyID, target int64) map[string]any {
	return map[string]any{
		"type":              "resource:item",
		"property_id":       propertyID,
		"value_resource_id": target,
	}
}

// Requests returns the requests received so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Count reports how many requests matched method and path.
func (f *FakeAPI) Count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// CountPrefix reports how many requests had a path starting with prefix.
func (f *FakeAPI) CountPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// ResetRequests forgets the recorded requests.
func (f *FakeAPI) ResetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})

	if status, ok := f.statuses[r.URL.Path]; ok {
		writeJSON(w, status, map[string]any{"errors": map[string]any{"error": http.StatusText(status)}})
		return
	}

	resource, id, ok := route(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": map[string]any{"error": "no route"}})
		return
	}

	switch {
	case r.Method == http.MethodGet && id == 0:
		f.list(w, r, resource)
	case r.Method == http.MethodGet:
		f.get(w, resource, id)
	case r.Method == http.MethodPost && resource == "items" && id == 0:
		f.create(w, body)
	case r.Method == http.MethodPut && resource == "items" && id != 0:
		f.replace(w, id, body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"errors": map[string]any{"error": "method not allowed"}})
	}
}

func route(path string) (resource string, id int64, ok bool) {
	rest, found := strings.CutPrefix(path, APIPath+"/")
	if !found {
		return "", 0, false
	}

	resource, rawID, hasID := strings.Cut(strings.Trim(rest, "/"), "/")
	if hasID {
		n, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || n <= 0 {
			return "", 0, false
		}
		id = n
	}

	switch resource {
	case "properties", "resource_templates", "items":
		return resource, id, true
	default:
		return "", 0, false
	}
}

func (f *FakeAPI) collection(resource string) map[int64]map[string]any {
	switch resource {
	case "properties":
		return f.properties
	case "resource_templates":
		return f.templates
	default:
		return f.items
	}
}

func (f *FakeAPI) get(w http.ResponseWriter, resource string, id int64) {
	obj, ok := f.collection(resource)[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": map[string]any{"error": fmt.Sprintf("%s %d not found", resource, id)}})
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (f *FakeAPI) list(w http.ResponseWriter, r *http.Request, resource string) {
	q := r.URL.Query()
	entries := f.sorted(resource, q["resource_template_id[]"])

	perPage := f.pageSize
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 {
		perPage = n
	}
	page := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page = n
	}

	if perPage > 0 {
		start := (page - 1) * perPage
		end := start + perPage
		if start > len(entries) {
			start = len(entries)
		}
		if end > len(entries) {
			end = len(entries)
		}

		var links []string
		if end < len(entries) {
			links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageLink(r.URL, page+1)))
		}
		if page > 1 {
			links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageLink(r.URL, page-1)))
		}
		if len(links) > 0 {
			w.Header().Set("Link", strings.Join(links, ", "))
		}
		entries = entries[start:end]
	}

	writeJSON(w, http.StatusOK, entries)
}

// sorted returns the entries of resource ordered by id, restricted to the
// given template ids when any are set.
func (f *FakeAPI) sorted(resource string, templateIDs []string) []map[string]any {
	coll := f.collection(resource)

	ids := make([]int64, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		obj := coll[id]
		if len(templateIDs) > 0 && !matchesTemplate(obj, templateIDs) {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func matchesTemplate(obj map[string]any, templateIDs []string) bool {
	ref, _ := obj["o:resource_template"].(map[string]any)
	if ref == nil {
		return false
	}
	got := fmt.Sprint(ref["o:id"])
	for _, want := range templateIDs {
		if got == want {
			return true
		}
	}
	return false
}

// pageLink is an origin-relative link to page of the listing at u.
func pageLink(u *url.URL, page int) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	return (&url.URL{Path: u.Path, RawQuery: q.Encode()}).String()
}

func (f *FakeAPI) create(w http.ResponseWriter, body []byte) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]any{"error": err.Error()}})
		return
	}

	f.nextItemID++
	id := f.nextItemID
	obj["@id"] = f.itemIRI(id)
	obj["o:id"] = id
	if _, ok := obj["o:item_set"]; !ok {
		obj["o:item_set"] = []any{}
	}
	f.items[id] = obj

	writeJSON(w, http.StatusOK, obj)
}

func (f *FakeAPI) replace(w http.ResponseWriter, id int64, body []byte) {
	if _, ok := f.items[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": map[string]any{"error": fmt.Sprintf("items %d not found", id)}})
		return
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]any{"error": err.Error()}})
		return
	}

	obj["@id"] = f.itemIRI(id)
	obj["o:id"] = id
	if _, ok := obj["o:item_set"]; !ok {
		obj["o:item_set"] = []any{}
	}
	f.items[id] = obj

	writeJSON(w, http.StatusOK, obj)
}

func (f *FakeAPI) itemIRI(id int64) string {
	return f.server.URL + APIPath + "/items/" + strconv.FormatInt(id, 10)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyObject(obj map[string]any) map[string]any {
	data, _ := json.Marshal(obj)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}
