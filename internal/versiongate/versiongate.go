// Package versiongate implements the startup constraint check: an OFAC
// country-code denial list and a set of severity-ranked version
// constraints fetched from a remote JSON document, evaluated against the
// running binary's version before the worker pool is allowed to start.
package versiongate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Severity ranks how a failed constraint should be handled; Blocking is the
// most severe and terminates the process.
type Severity int

const (
	SeverityNotice Severity = iota
	SeverityWarning
	SeverityBlocking
)

// ParseSeverity parses the wire string form of Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "blocking":
		return SeverityBlocking, nil
	case "warning":
		return SeverityWarning, nil
	case "notice":
		return SeverityNotice, nil
	default:
		return 0, fmt.Errorf("versiongate: unknown constraint kind %q", s)
	}
}

// Constraint is one entry in the remote version_constraints list.
type Constraint struct {
	Kind      Severity
	StartDate *time.Time
	Message   string
	Version   string
}

// active reports whether c's start_date has already elapsed (or is unset).
func (c Constraint) active(now time.Time) bool {
	return c.StartDate == nil || !c.StartDate.After(now)
}

// Document is the remote JSON blob VersionGate fetches at startup.
type Document struct {
	Constraints   []Constraint
	OFACCountries map[string]string // ISO code -> optional display name
}

type wireConstraint struct {
	Kind      string `json:"kind"`
	StartDate *int64 `json:"start_date"`
	Message   string `json:"message"`
	Version   string `json:"version"`
}

type wireDocument struct {
	VersionConstraints []wireConstraint  `json:"version_constraints"`
	OFACCountries      map[string]string `json:"ofac_countries"`
}

// Violation describes the most severe active constraint that failed.
type Violation struct {
	Severity Severity
	Message  string
}

func (v *Violation) Error() string { return v.Message }

// DeniedCountry is returned when the detected country matches the OFAC list.
type DeniedCountry struct {
	Code string
	Name string
}

func (d *DeniedCountry) Error() string {
	if d.Name != "" {
		return fmt.Sprintf("access denied: %s (%s) is a restricted jurisdiction", d.Name, d.Code)
	}
	return fmt.Sprintf("access denied: %s is a restricted jurisdiction", d.Code)
}

// Gate fetches the remote document and evaluates it against the local
// version and detected country.
type Gate struct {
	url  string
	http *http.Client
}

// New constructs a Gate fetching its document from url.
func New(url string) *Gate {
	return &Gate{url: url, http: &http.Client{Timeout: 10 * time.Second}}
}

func (g *Gate) fetch(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("versiongate: fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Document{}, fmt.Errorf("versiongate: read body: %w", err)
	}
	var wd wireDocument
	if err := json.Unmarshal(body, &wd); err != nil {
		return Document{}, fmt.Errorf("versiongate: decode: %w", err)
	}
	doc := Document{OFACCountries: wd.OFACCountries}
	for _, wc := range wd.VersionConstraints {
		kind, err := ParseSeverity(wc.Kind)
		if err != nil {
			return Document{}, err
		}
		c := Constraint{Kind: kind, Message: wc.Message, Version: wc.Version}
		if wc.StartDate != nil {
			t := time.Unix(*wc.StartDate, 0).UTC()
			c.StartDate = &t
		}
		doc.Constraints = append(doc.Constraints, c)
	}
	return doc, nil
}

// Check fetches the remote document and evaluates it against currentVersion
// and countryCode. A denied country is returned as a *DeniedCountry error.
// A blocking violation is returned as the *Violation together with a
// non-nil error; a non-blocking Violation is returned alongside a nil error
// so the caller can print-and-continue.
func (g *Gate) Check(ctx context.Context, currentVersion, countryCode string) (*Violation, error) {
	doc, err := g.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if name, denied := doc.OFACCountries[countryCode]; denied {
		return nil, &DeniedCountry{Code: countryCode, Name: name}
	}

	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return nil, fmt.Errorf("versiongate: parse current version %q: %w", currentVersion, err)
	}

	now := time.Now()
	var worst *Violation
	for _, c := range doc.Constraints {
		if !c.active(now) {
			continue
		}
		required, err := semver.NewVersion(c.Version)
		if err != nil {
			continue
		}
		if current.LessThan(required) {
			if worst == nil || c.Kind > worst.Severity {
				worst = &Violation{Severity: c.Kind, Message: c.Message}
			}
		}
	}
	if worst != nil && worst.Severity == SeverityBlocking {
		return worst, fmt.Errorf("versiongate: blocking constraint: %s", worst.Message)
	}
	return worst, nil
}
