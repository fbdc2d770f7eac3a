// Package config holds the per-project crawl Settings snapshot and the
// engine-wide Process configuration (database/queue/logging).
package config

import "encoding/json"

// Settings is the project.settings snapshot the engine consumes.
type Settings struct {
	MaxPages          int      `json:"maxPages"`
	MaxDepth          int      `json:"maxDepth"`
	IgnoreParams      []string `json:"ignoreParams"`
	ThrottleMs        int      `json:"throttleMs"`
	IncludeSubdomains bool     `json:"includeSubdomains"`
	RespectRobots     bool     `json:"respectRobots"`
	UserAgent         string   `json:"userAgent"`
}

// DefaultSettings returns the engine's baseline Settings.
func DefaultSettings() Settings {
	return Settings{
		MaxPages:   1000,
		MaxDepth:   5,
		ThrottleMs: 100,
		IgnoreParams: []string{
			"utm_source", "utm_medium", "utm_campaign",
			"utm_content", "utm_term", "fbclid", "gclid",
		},
		IncludeSubdomains: false,
		RespectRobots:     true,
		UserAgent:         "HydraFrogBot/1.0",
	}
}

// rawSettings mirrors Settings with pointer/nil-able fields so that
// ParseSettings can tell "key omitted" apart from "key present with its
// zero value" (maxPages=0 and maxDepth=0 are both meaningful boundary
// values, not absent settings).
type rawSettings struct {
	MaxPages          *int     `json:"maxPages"`
	MaxDepth          *int     `json:"maxDepth"`
	IgnoreParams      []string `json:"ignoreParams"`
	ThrottleMs        *int     `json:"throttleMs"`
	IncludeSubdomains *bool    `json:"includeSubdomains"`
	RespectRobots     *bool    `json:"respectRobots"`
	UserAgent         string   `json:"userAgent"`
}

// MarshalSettings encodes a Settings snapshot for storage as
// CrawlRun.SettingsSnapshotJSON.
func MarshalSettings(s Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseSettings decodes a project.settings JSON document, filling in
// defaults for any key the document omits entirely (a key present with
// its zero value, e.g. maxPages=0, is taken literally).
func ParseSettings(raw string) (Settings, error) {
	d := DefaultSettings()
	if raw == "" {
		return d, nil
	}

	var r rawSettings
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Settings{}, err
	}

	s := d
	if r.MaxPages != nil {
		s.MaxPages = *r.MaxPages
	}
	if r.MaxDepth != nil {
		s.MaxDepth = *r.MaxDepth
	}
	if r.ThrottleMs != nil {
		s.ThrottleMs = *r.ThrottleMs
	}
	if r.IgnoreParams != nil {
		s.IgnoreParams = r.IgnoreParams
	}
	if r.IncludeSubdomains != nil {
		s.IncludeSubdomains = *r.IncludeSubdomains
	}
	if r.RespectRobots != nil {
		s.RespectRobots = *r.RespectRobots
	}
	if r.UserAgent != "" {
		s.UserAgent = r.UserAgent
	}
	return s, nil
}

