package versiongate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveDoc(t *testing.T, doc wireDocument) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
}

func TestCheckDeniesOFACCountry(t *testing.T) {
	srv := serveDoc(t, wireDocument{OFACCountries: map[string]string{"KP": "North Korea"}})
	defer srv.Close()

	g := New(srv.URL)
	_, err := g.Check(context.Background(), "1.0.0", "KP")
	var denied *DeniedCountry
	if !errors.As(err, &denied) {
		t.Fatalf("expected *DeniedCountry, got %T: %v", err, err)
	}
}

func TestCheckAllowsUnrestrictedCountry(t *testing.T) {
	srv := serveDoc(t, wireDocument{OFACCountries: map[string]string{"KP": "North Korea"}})
	defer srv.Close()

	g := New(srv.URL)
	v, err := g.Check(context.Background(), "1.0.0", "US")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v != nil {
		t.Fatalf("expected no violation, got %+v", v)
	}
}

func TestCheckBlockingConstraintFiresWhenBelowVersion(t *testing.T) {
	srv := serveDoc(t, wireDocument{
		VersionConstraints: []wireConstraint{
			{Kind: "blocking", Message: "upgrade required", Version: "2.0.0"},
		},
	})
	defer srv.Close()

	g := New(srv.URL)
	v, err := g.Check(context.Background(), "1.5.0", "US")
	if err == nil {
		t.Fatalf("expected blocking error")
	}
	if v == nil || v.Severity != SeverityBlocking {
		t.Fatalf("expected blocking violation, got %+v", v)
	}
}

func TestCheckWarningConstraintDoesNotError(t *testing.T) {
	srv := serveDoc(t, wireDocument{
		VersionConstraints: []wireConstraint{
			{Kind: "warning", Message: "please upgrade soon", Version: "2.0.0"},
		},
	})
	defer srv.Close()

	g := New(srv.URL)
	v, err := g.Check(context.Background(), "1.5.0", "US")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v == nil || v.Severity != SeverityWarning {
		t.Fatalf("expected warning violation, got %+v", v)
	}
}

func TestCheckConstraintInactiveWhenVersionSatisfied(t *testing.T) {
	srv := serveDoc(t, wireDocument{
		VersionConstraints: []wireConstraint{
			{Kind: "blocking", Message: "upgrade required", Version: "1.0.0"},
		},
	})
	defer srv.Close()

	g := New(srv.URL)
	v, err := g.Check(context.Background(), "2.0.0", "US")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v != nil {
		t.Fatalf("expected no violation when version already satisfies constraint, got %+v", v)
	}
}
