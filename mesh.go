package surfmesh

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec3"
)

// Surface 将二维三角形流提升为 (x, f(x,y), y) 的三维网格
type Surface struct {
	Name     string      `json:"name"`
	Vertices []vec3.T    `json:"vertices"`
	Normals  []vec3.T    `json:"normals,omitempty"`
	Colors   []vec3.T    `json:"colors,omitempty"`
	Range    HeightRange `json:"range"`
	Material *Material   `json:"material,omitempty"`
}

// Lift 用 fn 重新计算每个顶点的高度, 颜色按 m.Range 归一化
func Lift(m *Mesh, fn Sampler) *Surface {
	s := &Surface{
		Name:     m.Request.Expression,
		Vertices: make([]vec3.T, len(m.Vertices)),
		Colors:   make([]vec3.T, len(m.Vertices)),
		Range:    m.Range,
	}
	for i, v := range m.Vertices {
		h := float32(fn.Eval(float64(v[0]), float64(v[1])))
		s.Vertices[i] = vec3.T{v[0], h, v[1]}
		s.Colors[i] = HeightColor(m.Range.Normalize(h))
	}
	s.ReComputeNormal()
	return s
}

// HeightColor 蓝 -> 青 -> 绿 -> 黄 -> 红
func HeightColor(t float32) vec3.T {
	switch {
	case t < 0.25:
		return vec3.T{0, t / 0.25, 1}
	case t < 0.5:
		return vec3.T{0, 1, 1 - (t-0.25)/0.25}
	case t < 0.75:
		return vec3.T{(t - 0.5) / 0.25, 1, 0}
	default:
		return vec3.T{1, 1 - (t-0.75)/0.25, 0}
	}
}

func (s *Surface) TriangleCount() int {
	return len(s.Vertices) / 3
}

// ReComputeNormal 每个三角形使用平面法线, y 向上为正面
func (s *Surface) ReComputeNormal() {
	normals := make([]vec3.T, len(s.Vertices))
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		pt1 := s.Vertices[i]
		pt2 := s.Vertices[i+1]
		pt3 := s.Vertices[i+2]

		sub1 := vec3.Sub(&pt2, &pt1)
		sub2 := vec3.Sub(&pt3, &pt1)

		cro := vec3.Cross(&sub2, &sub1)
		l := cro.Length()
		if l == 0 {
			cro = vec3.T{0, 1, 0}
		} else {
			cro.Scale(1 / l)
		}
		normals[i] = cro
		normals[i+1] = cro
		normals[i+2] = cro
	}
	s.Normals = normals
}

func (s *Surface) GetBoundbox() *[6]float64 {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := range s.Vertices {
		minX = math.Min(minX, float64(s.Vertices[i][0]))
		minY = math.Min(minY, float64(s.Vertices[i][1]))
		minZ = math.Min(minZ, float64(s.Vertices[i][2]))

		maxX = math.Max(maxX, float64(s.Vertices[i][0]))
		maxY = math.Max(maxY, float64(s.Vertices[i][1]))
		maxZ = math.Max(maxZ, float64(s.Vertices[i][2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

func (s *Surface) ComputeBBox() dvec3.Box {
	if len(s.Vertices) == 0 {
		return dvec3.Box{}
	}
	bx := s.GetBoundbox()
	return dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}
}
