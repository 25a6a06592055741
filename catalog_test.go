package surfmesh

import (
	"path/filepath"
	"testing"
	"time"

	dvec2 "github.com/flywave/go3d/float64/vec2"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "db", "catalog.db"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testMesh(expr string) *Mesh {
	req := MeshRequest{Expression: expr, Resolution: 0.5, Extents: dvec2.T{2, 3}, Adaptive: true}
	return &Mesh{
		Request:  req,
		Key:      Key(req, DefaultAdaptiveConfig()),
		Vertices: make([]Vertex2D, 12),
		Range:    HeightRange{Min: -1, Max: 2},
	}
}

func TestCatalogRecordLookup(t *testing.T) {
	c := openTestCatalog(t)
	m := testMesh("x+y")
	if err := c.Record(m); err != nil {
		t.Fatal(err)
	}

	rec, err := c.Lookup(m.Key)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("record not found")
	}
	if rec.Expression != "x+y" || rec.Resolution != 0.5 || rec.ExtentX != 2 || rec.ExtentY != 3 || !rec.Adaptive {
		t.Errorf("request fields = %+v", rec)
	}
	if rec.VertexCount != 12 || rec.MinHeight != -1 || rec.MaxHeight != 2 || rec.Version != FormatVersion {
		t.Errorf("mesh fields = %+v", rec)
	}

	missing, err := c.Lookup("0000000000000000")
	if err != nil || missing != nil {
		t.Errorf("Lookup(missing) = %v, %v", missing, err)
	}
}

func TestCatalogRecordOverwrites(t *testing.T) {
	c := openTestCatalog(t)
	m := testMesh("x")
	if err := c.Record(m); err != nil {
		t.Fatal(err)
	}
	m.Vertices = make([]Vertex2D, 6)
	if err := c.Record(m); err != nil {
		t.Fatal(err)
	}
	recs, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].VertexCount != 6 {
		t.Errorf("List() = %+v", recs)
	}
}

func TestCatalogListForgetClear(t *testing.T) {
	c := openTestCatalog(t)
	older, newer := testMesh("x"), testMesh("y")
	if err := c.Record(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := c.Record(newer); err != nil {
		t.Fatal(err)
	}

	recs, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Key != newer.Key {
		t.Fatalf("List() should return newest first: %+v", recs)
	}

	if err := c.Forget(older.Key); err != nil {
		t.Fatal(err)
	}
	if rec, _ := c.Lookup(older.Key); rec != nil {
		t.Error("Forget did not remove the record")
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	recs, _ = c.List()
	if len(recs) != 0 {
		t.Errorf("List() after Clear = %d records", len(recs))
	}
}
