package surfmesh

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	return NewSession(newTestCache(t), append([]SessionOption{WithLogger(discardLogger())}, opts...)...)
}

func TestGenerateMeshMissThenHit(t *testing.T) {
	s := newTestSession(t)
	req := mustRequest(t, "sin(x)*cos(y)", 0.25, 2, 2, true)

	first, err := s.GenerateMesh(req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first request should not be served from cache")
	}
	if first.VertexCount() == 0 || first.VertexCount()%3 != 0 {
		t.Fatalf("vertex count = %d", first.VertexCount())
	}
	if first.Range.Min > -0.9 || first.Range.Max < 0.9 {
		t.Errorf("range = %+v, expected roughly [-1, 1]", first.Range)
	}

	second, err := s.GenerateMesh(req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second request should be served from cache")
	}
	if second.Key != first.Key || second.Range != first.Range {
		t.Errorf("cached mesh differs: %+v vs %+v", second, first)
	}
	if len(second.Vertices) != len(first.Vertices) {
		t.Fatalf("cached vertex count %d, generated %d", len(second.Vertices), len(first.Vertices))
	}
	for i := range first.Vertices {
		if first.Vertices[i] != second.Vertices[i] {
			t.Fatalf("vertex %d: %v vs %v", i, first.Vertices[i], second.Vertices[i])
		}
	}
}

func TestGenerateMeshUniformFixture(t *testing.T) {
	s := newTestSession(t)
	m, err := s.GenerateMesh(mustRequest(t, "x+y", 1, 2, 2, false))
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() != 96 || m.TriangleCount() != 32 {
		t.Errorf("vertices %d, triangles %d", m.VertexCount(), m.TriangleCount())
	}
	if m.Range != (HeightRange{Min: -4, Max: 4}) {
		t.Errorf("range = %+v", m.Range)
	}
}

func TestGenerateMeshInvalidRequest(t *testing.T) {
	s := newTestSession(t)
	_, err := s.GenerateMesh(MeshRequest{Expression: "x", Resolution: 0})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	keys, _ := s.Cache().Entries()
	if len(keys) != 0 {
		t.Errorf("invalid request wrote cache entries: %v", keys)
	}
}

func TestGenerateMeshUnknownFunction(t *testing.T) {
	s := newTestSession(t)
	m, err := s.GenerateMesh(mustRequest(t, "unknown_fn(x)", 0.5, 1, 1, true))
	if err != nil {
		t.Fatal(err)
	}
	if m.Range != (HeightRange{}) {
		t.Errorf("range = %+v, want {0 0}", m.Range)
	}
	// 常数函数不细分, 起始方格边长为 1
	if m.VertexCount() != 4*6 {
		t.Errorf("vertex count = %d, want 24", m.VertexCount())
	}
}

func TestGenerateMeshConcurrent(t *testing.T) {
	s := newTestSession(t)
	req := mustRequest(t, "x*x - y*y", 0.1, 3, 3, true)

	const n = 8
	meshes := make([]*Mesh, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meshes[i], errs[i] = s.GenerateMesh(req)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if meshes[i].VertexCount() != meshes[0].VertexCount() || meshes[i].Range != meshes[0].Range {
			t.Errorf("request %d returned a different mesh", i)
		}
	}
	keys, _ := s.Cache().Entries()
	if len(keys) != 1 {
		t.Errorf("expected one cache entry, got %v", keys)
	}
	entry, err := s.Cache().Load(req)
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.Vertices) != meshes[0].VertexCount() {
		t.Errorf("cached %d vertices, generated %d", len(entry.Vertices), meshes[0].VertexCount())
	}
}

func TestSessionRegistry(t *testing.T) {
	s := newTestSession(t)

	a, err := s.Add(mustRequest(t, "x", 1, 1, 1, false))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Add(mustRequest(t, "y", 1, 1, 1, true))
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.Add(mustRequest(t, "sqrt(x)", 1, 1, 1, false))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID || b.ID == c.ID {
		t.Fatal("function IDs must be unique")
	}
	if _, err := s.Add(MeshRequest{}); err == nil {
		t.Error("expected error adding invalid request")
	}

	if got, ok := s.Get(b.ID); !ok || got != b {
		t.Error("Get did not return the added function")
	}
	if len(s.Functions()) != 3 {
		t.Errorf("Functions() = %d", len(s.Functions()))
	}

	c.SetActive(false)
	if len(s.Active()) != 2 {
		t.Errorf("Active() = %d, want 2", len(s.Active()))
	}

	if err := s.UpdateAll(); err != nil {
		t.Fatal(err)
	}
	if a.Mesh() == nil || b.Mesh() == nil {
		t.Error("active functions should have meshes after UpdateAll")
	}
	if c.Mesh() != nil {
		t.Error("inactive function should not be generated")
	}

	if !s.Remove(a.ID) {
		t.Error("Remove returned false for existing function")
	}
	if s.Remove(a.ID) {
		t.Error("Remove returned true for removed function")
	}
	if _, ok := s.Get(a.ID); ok {
		t.Error("removed function still present")
	}
	if fs := s.Functions(); len(fs) != 2 || fs[0] != b || fs[1] != c {
		t.Error("Functions() order not preserved after Remove")
	}
}

func TestSessionCatalog(t *testing.T) {
	catalog, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer catalog.Close()

	s := newTestSession(t, WithCatalog(catalog))
	m, err := s.GenerateMesh(mustRequest(t, "x*y", 0.5, 2, 1, false))
	if err != nil {
		t.Fatal(err)
	}

	rec, err := catalog.Lookup(m.Key)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("generated mesh was not recorded")
	}
	if rec.Expression != "x*y" || rec.VertexCount != m.VertexCount() || rec.ExtentY != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestGenerateMeshSaveFailure(t *testing.T) {
	catalog, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer catalog.Close()

	s := newTestSession(t, WithCatalog(catalog))
	dir := s.Cache().Dir()
	// 缓存目录被普通文件替换, 写入必然失败
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := mustRequest(t, "x+y", 1, 2, 2, false)
	for i := 0; i < 2; i++ {
		m, err := s.GenerateMesh(req)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if m == nil {
			t.Fatalf("attempt %d: nil mesh", i)
		}
		if m.Cached {
			t.Errorf("attempt %d: mesh reported as cached", i)
		}
		if m.VertexCount() != 96 {
			t.Errorf("attempt %d: vertex count = %d, want 96", i, m.VertexCount())
		}
	}

	rec, err := catalog.Lookup(s.Cache().Key(req))
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("catalog recorded an entry that was never saved: %+v", rec)
	}
}

func TestFunctionConcurrentAccess(t *testing.T) {
	s := newTestSession(t)
	for _, expr := range []string{"x", "y", "x*y", "x-y"} {
		if _, err := s.Add(mustRequest(t, expr, 0.5, 1, 1, true)); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, f := range s.Functions() {
				_ = f.Mesh()
				f.SetActive(f.IsActive())
			}
		}
	}()

	err := s.UpdateAll()
	close(done)
	wg.Wait()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range s.Functions() {
		if f.Mesh() == nil {
			t.Errorf("function %d has no mesh", f.ID)
		}
	}
}
