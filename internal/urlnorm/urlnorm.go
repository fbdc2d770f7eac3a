// Package urlnorm normalizes and classifies URLs for the BFS driver's
// admission-time dedup, including ignore-param stripping and query-key
// sorting.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize applies an ordered rule set to raw and returns the
// canonical string form. ok is false for non-http(s) schemes or
// unparseable input (the "invalid" sentinel).
func Normalize(raw string, ignoreParams map[string]struct{}) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if parsed.Host == "" {
		return "", false
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	stripDefaultPort(parsed)

	if parsed.RawQuery != "" {
		parsed.RawQuery = normalizeQuery(parsed.RawQuery, ignoreParams)
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}
	if parsed.Path != "/" {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
		if parsed.Path == "" {
			parsed.Path = "/"
		}
	}

	return parsed.String(), true
}

// ResolveAndNormalize resolves href against base (standard URI resolution)
// and then normalizes the result. ok is false if either URL fails to
// parse or the resolved URL is invalid per Normalize.
func ResolveAndNormalize(href, base string, ignoreParams map[string]struct{}) (string, bool) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	rel, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	resolved := baseURL.ResolveReference(rel)
	return Normalize(resolved.String(), ignoreParams)
}

// IsInternal classifies a normalized URL as internal to baseDomain. The
// comparison is case-insensitive; subdomains of baseDomain only count as
// internal when includeSubdomains is true.
func IsInternal(normalizedURL, baseDomain string, includeSubdomains bool) bool {
	parsed, err := url.Parse(normalizedURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	domain := strings.ToLower(baseDomain)

	if host == domain {
		return true
	}
	if includeSubdomains && strings.HasSuffix(host, "."+domain) {
		return true
	}
	return false
}

func stripDefaultPort(u *url.URL) {
	host := u.Host
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		u.Host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		u.Host = strings.TrimSuffix(host, ":443")
	}
}

// normalizeQuery drops ignored parameters and returns the remaining pairs
// sorted by key (stable for equal keys), percent-encoded consistently via
// url.Values.Encode.
func normalizeQuery(rawQuery string, ignoreParams map[string]struct{}) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}

	for key := range values {
		if _, skip := ignoreParams[strings.ToLower(key)]; skip {
			values.Del(key)
		}
	}

	if len(values) == 0 {
		return ""
	}

	// url.Values.Encode sorts by key already, giving a canonical,
	// percent-consistent serialization.
	return values.Encode()
}

// IgnoreSet builds the lower-cased lookup set Normalize/ResolveAndNormalize
// expect from a list of query-parameter names.
func IgnoreSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}
