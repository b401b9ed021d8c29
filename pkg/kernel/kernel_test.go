package kernel

import "testing"

// quad is two triangles in the z=0 plane.
func quad() *Mesh {
	return &Mesh{
		Vertices: []float32{0, 0, 0, 2, 0, 0, 2, 1, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
		Name:     "quad",
	}
}

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *Mesh
		vertices  int
		triangles int
		empty     bool
	}{
		{"zero", &Mesh{}, 0, 0, true},
		{"lone vertex", &Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, false},
		{"quad", quad(), 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", got, tt.vertices)
			}
			if got := tt.mesh.TriangleCount(); got != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.triangles)
			}
			if got := tt.mesh.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, -2, 3, -4, 5, 0.5}}
	min, max := m.Bounds()
	if min != [3]float64{-4, -2, 0.5} || max != [3]float64{1, 5, 3} {
		t.Errorf("Bounds() = %v %v", min, max)
	}
	if min, max := (&Mesh{}).Bounds(); min != [3]float64{} || max != [3]float64{} {
		t.Errorf("empty Bounds() = %v %v", min, max)
	}
	min, max = quad().Bounds()
	if min != [3]float64{0, 0, 0} || max != [3]float64{2, 1, 0} {
		t.Errorf("quad Bounds() = %v %v", min, max)
	}
}

func TestMeshAppend(t *testing.T) {
	a := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
	b := &Mesh{
		Vertices: []float32{0, 0, 1, 1, 0, 1, 0, 1, 1},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 2, 1},
	}
	a.Append(b)
	a.Append(nil)
	if a.VertexCount() != 6 || a.TriangleCount() != 2 {
		t.Fatalf("got %d vertices %d triangles, want 6 and 2", a.VertexCount(), a.TriangleCount())
	}
	want := []uint32{0, 1, 2, 3, 5, 4}
	for i, idx := range a.Indices {
		if idx != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, idx, want[i])
		}
	}
	if len(a.Normals) != len(a.Vertices) {
		t.Errorf("normals %d, vertices %d", len(a.Normals), len(a.Vertices))
	}
}

func TestMeshAppendToEmpty(t *testing.T) {
	var m Mesh
	m.Append(quad())
	m.Append(quad())
	if m.VertexCount() != 8 || m.TriangleCount() != 4 {
		t.Fatalf("got %d vertices %d triangles, want 8 and 4", m.VertexCount(), m.TriangleCount())
	}
	if m.Indices[6] != 4 || m.Indices[11] != 4 {
		t.Errorf("second quad indices not offset: %v", m.Indices[6:])
	}
}
