package transport

import (
	"net/url"
	"strings"
)

// Link is one segment of an RFC 8288 Link header.
type Link struct {
	URL string
	Rel []string
}

// HasRel reports whether the link carries relation rel.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rel {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// ParseLinks splits a Link header value into its segments:
//
//	</api/items?page=2>; rel="next", </api/items?page=9>; rel="last"
//
// Segments without a <url> or without a rel parameter are skipped.
func ParseLinks(header string) []Link {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	var out []Link
	for _, segment := range strings.Split(header, ",") {
		params := strings.Split(segment, ";")
		if len(params) < 2 {
			continue
		}

		target := strings.TrimSpace(params[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		link := Link{URL: target[1 : len(target)-1]}
		for _, param := range params[1:] {
			key, value, ok := strings.Cut(param, "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), `"`)
			link.Rel = append(link.Rel, strings.Fields(value)...)
		}

		if len(link.Rel) == 0 {
			continue
		}
		out = append(out, link)
	}
	return out
}

// NextURL returns the absolute URL of the rel="next" page advertised by resp.
// Relative links are resolved against the origin (scheme and host) of the
// response URL.
func NextURL(resp *Response) (string, bool) {
	if resp == nil {
		return "", false
	}

	for _, link := range ParseLinks(resp.Header.Get("Link")) {
		if !link.HasRel("next") {
			continue
		}

		ref, err := url.Parse(link.URL)
		if err != nil {
			return "", false
		}
		if ref.IsAbs() || resp.URL == nil {
			return ref.String(), true
		}

		origin := &url.URL{Scheme: resp.URL.Scheme, Host: resp.URL.Host, Path: "/"}
		return origin.ResolveReference(ref).String(), true
	}
	return "", false
}
