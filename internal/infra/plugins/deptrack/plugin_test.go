package deptrack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/mappings"
	"github.com/sbomify/assessments/internal/domain/plugins"
)

// memMappings is a mutex-guarded stand-in for the database-backed store; its
// GetOrCreate mirrors the insert-or-fetch contract.
type memMappings struct {
	mu    sync.Mutex
	rows  map[string]*mappings.ExternalProject
	races int
}

func newMemMappings() *memMappings {
	return &memMappings{rows: make(map[string]*mappings.ExternalProject)}
}

func key(releaseID, serverName string) string { return releaseID + "|" + serverName }

func (m *memMappings) Get(_ context.Context, releaseID, serverName string) (*mappings.ExternalProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[key(releaseID, serverName)]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, mappings.ErrNotFound
}

func (m *memMappings) GetOrCreate(_ context.Context, p *mappings.ExternalProject) (*mappings.ExternalProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(p.ReleaseID, p.ServerName)
	if row, ok := m.rows[k]; ok {
		m.races++
		cp := *row
		return &cp, nil
	}
	cp := *p
	m.rows[k] = &cp
	out := cp
	return &out, nil
}

// fakeServer is a minimal Dependency-Track-style endpoint set.
type fakeServer struct {
	mu         sync.Mutex
	projects   int
	uploads    map[string]int // project uuid -> bom uploads
	processing bool
	findings   []map[string]any
}

func newFakeServer() *fakeServer {
	return &fakeServer{uploads: make(map[string]int)}
}

func (s *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/project", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret-key", r.Header.Get("X-Api-Key"))
		s.mu.Lock()
		s.projects++
		uuid := fmt.Sprintf("proj-%d", s.projects)
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"uuid": uuid})
	})
	mux.HandleFunc("/api/v1/bom", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Project string `json:"project"`
			BOM     string `json:"bom"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.uploads[body.Project]++
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/bom/project/proj-1/status", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"processing": s.processing})
	})
	mux.HandleFunc("/api/v1/finding/project/proj-1", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.findings)
	})
	return mux
}

func newTestPlugin(t *testing.T, srv *httptest.Server) (*Plugin, *memMappings) {
	t.Helper()
	store := newMemMappings()
	p := &Plugin{
		Servers: NewStaticDirectory(map[string]*Client{
			"primary": NewClient(srv.URL, "secret-key"),
		}),
		Mappings: store,
	}
	return p, store
}

func input(attempt int) plugins.Input {
	return plugins.Input{
		RunID:     "run-1",
		TenantID:  "acme",
		SBOMID:    "sbom-1",
		ReleaseID: "rel-1",
		Attempt:   attempt,
		Content:   []byte(`{"bomFormat":"CycloneDX"}`),
		Config:    map[string]any{"server": "primary"},
	}
}

func TestAssessFirstCallUploadsAndRetries(t *testing.T) {
	fs := newFakeServer()
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, store := newTestPlugin(t, srv)

	_, err := p.Assess(context.Background(), input(0))

	var retry *domain.RetryLaterError
	require.ErrorAs(t, err, &retry)

	m, err := store.Get(context.Background(), "rel-1", "primary")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", m.ExternalID)
	assert.Equal(t, 1, fs.uploads["proj-1"])
}

func TestAssessPollsWhileProcessing(t *testing.T) {
	fs := newFakeServer()
	fs.processing = true
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, store := newTestPlugin(t, srv)
	_, err := store.GetOrCreate(context.Background(), &mappings.ExternalProject{
		ReleaseID: "rel-1", ServerName: "primary", ExternalID: "proj-1",
	})
	require.NoError(t, err)

	_, err = p.Assess(context.Background(), input(1))

	var retry *domain.RetryLaterError
	require.ErrorAs(t, err, &retry)
	assert.Zero(t, fs.uploads["proj-1"], "polling attempts never re-upload")
}

func TestAssessFetchesFindingsWhenDone(t *testing.T) {
	fs := newFakeServer()
	fs.findings = []map[string]any{
		{
			"component": map[string]any{"name": "lib-a", "version": "1.0.0"},
			"vulnerability": map[string]any{
				"vulnId": "CVE-2026-0001", "severity": "CRITICAL", "cvssV3BaseScore": 9.8,
			},
		},
		{
			"component": map[string]any{"name": "lib-b"},
			"vulnerability": map[string]any{
				"vulnId": "CVE-2026-0002", "severity": "LOW", "cvssV3BaseScore": 2.1,
			},
		},
		{
			"component":     map[string]any{"name": "lib-c"},
			"vulnerability": map[string]any{"vulnId": "CVE-2026-0003", "severity": "HIGH"},
			"analysis":      map[string]any{"isSuppressed": true},
		},
	}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, store := newTestPlugin(t, srv)
	_, err := store.GetOrCreate(context.Background(), &mappings.ExternalProject{
		ReleaseID: "rel-1", ServerName: "primary", ExternalID: "proj-1",
	})
	require.NoError(t, err)

	res, err := p.Assess(context.Background(), input(2))
	require.NoError(t, err)
	require.NotNil(t, res)

	require.Len(t, res.Findings, 2, "suppressed findings are dropped")
	assert.Equal(t, "CVE-2026-0001", res.Findings[0].ID)
	assert.Equal(t, domain.SeverityCritical, res.Findings[0].Severity)
	assert.Equal(t, domain.FindingFail, res.Findings[0].Status)
	assert.InDelta(t, 9.8, res.Findings[0].CVSS, 0.001)
	assert.Equal(t, "lib-a@1.0.0", res.Findings[0].Component)

	assert.Equal(t, domain.FindingWarning, res.Findings[1].Status)
	require.NotNil(t, res.Summary.Severities)
	assert.Equal(t, 1, res.Summary.Severities.Critical)
	assert.Equal(t, 1, res.Summary.Severities.Low)
	assert.Equal(t, 1, res.Summary.Fail)
}

func TestAssessRequiresConfiguredServer(t *testing.T) {
	p := &Plugin{Servers: NewStaticDirectory(nil), Mappings: newMemMappings()}

	_, err := p.Assess(context.Background(), plugins.Input{Config: map[string]any{}})
	assert.ErrorContains(t, err, "server")

	_, err = p.Assess(context.Background(), plugins.Input{Config: map[string]any{"server": "ghost"}})
	assert.ErrorContains(t, err, "not configured")
}

func TestConcurrentFirstCallsShareOneMapping(t *testing.T) {
	fs := newFakeServer()
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, store := newTestPlugin(t, srv)

	const racers = 8
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Assess(context.Background(), input(0))
			var retry *domain.RetryLaterError
			if !errors.As(err, &retry) {
				t.Errorf("expected retry-later, got %v", err)
			}
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.rows, 1, "all racers converge on one mapping row")
	winner := store.rows[key("rel-1", "primary")].ExternalID
	for _, row := range store.rows {
		assert.Equal(t, winner, row.ExternalID)
	}
}
