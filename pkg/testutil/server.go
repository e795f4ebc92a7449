package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ArtifactServer serves in-memory files over HTTP for download tests
type ArtifactServer struct {
	*httptest.Server

	mu      sync.Mutex
	files   map[string][]byte
	hits    map[string]int
	blocked map[string]*gate
}

type gate struct {
	started     chan struct{}
	startOnce   sync.Once
	release     chan struct{}
	releaseOnce sync.Once
}

func (g *gate) open() {
	g.releaseOnce.Do(func() { close(g.release) })
}

// NewArtifactServer starts a server that is closed when the test ends
func NewArtifactServer(t *testing.T) *ArtifactServer {
	t.Helper()
	s := &ArtifactServer{
		files:   make(map[string][]byte),
		hits:    make(map[string]int),
		blocked: make(map[string]*gate),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.mu.Lock()
		for _, g := range s.blocked {
			g.open()
		}
		s.mu.Unlock()
		s.Close()
	})
	return s
}

// Add publishes data under name and returns its URL
func (s *ArtifactServer) Add(name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return s.URL + "/" + name
}

// Hits returns how many times name was requested
func (s *ArtifactServer) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

// Block makes requests for name wait until release is called. started is
// closed when the first such request arrives.
func (s *ArtifactServer) Block(name string) (started <-chan struct{}, release func()) {
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.blocked[name] = g
	s.mu.Unlock()
	return g.started, g.open
}

func (s *ArtifactServer) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	s.hits[name]++
	data, ok := s.files[name]
	g := s.blocked[name]
	s.mu.Unlock()

	if g != nil {
		g.startOnce.Do(func() { close(g.started) })
		select {
		case <-g.release:
		case <-r.Context().Done():
			return
		}
	}

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}
