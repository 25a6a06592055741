package surfmesh

import (
	"errors"
	"fmt"
	"math"

	dvec2 "github.com/flywave/go3d/float64/vec2"
)

// AdaptiveConfig 自适应细分参数
type AdaptiveConfig struct {
	// MaxDepth 每个起始方格的最大递归深度
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// StartScale 起始方格边长 = StartScale * resolution
	StartScale float64 `yaml:"start_scale" json:"start_scale"`
	// MinDiagonalScale 对角线短于 MinDiagonalScale * resolution 时不再细分
	MinDiagonalScale float64 `yaml:"min_diagonal_scale" json:"min_diagonal_scale"`
	HeightVariation  float64 `yaml:"height_variation" json:"height_variation"`
	CenterDeviation  float64 `yaml:"center_deviation" json:"center_deviation"`
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		MaxDepth:         4,
		StartScale:       2,
		MinDiagonalScale: 0.25,
		HeightVariation:  0.2,
		CenterDeviation:  0.1,
	}
}

func (c AdaptiveConfig) IsDefault() bool {
	return c == DefaultAdaptiveConfig()
}

func (c AdaptiveConfig) Validate() error {
	var errs []error
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if !(c.StartScale > 0) || math.IsInf(c.StartScale, 0) {
		errs = append(errs, fmt.Errorf("start_scale must be positive, got %v", c.StartScale))
	}
	if !(c.MinDiagonalScale >= 0) {
		errs = append(errs, fmt.Errorf("min_diagonal_scale must not be negative, got %v", c.MinDiagonalScale))
	}
	if !(c.HeightVariation >= 0) {
		errs = append(errs, fmt.Errorf("height_variation must not be negative, got %v", c.HeightVariation))
	}
	if !(c.CenterDeviation >= 0) {
		errs = append(errs, fmt.Errorf("center_deviation must not be negative, got %v", c.CenterDeviation))
	}
	return errors.Join(errs...)
}

// Quad 细分过程中的临时方格, 只存在于生成调用栈上.
// Top 对应较小的 y.
type Quad struct {
	TopLeft     dvec2.T
	TopRight    dvec2.T
	BottomLeft  dvec2.T
	BottomRight dvec2.T
	Depth       int
}

func NewQuad(x0, y0, x1, y1 float64, depth int) Quad {
	return Quad{
		TopLeft:     dvec2.T{x0, y0},
		TopRight:    dvec2.T{x1, y0},
		BottomLeft:  dvec2.T{x0, y1},
		BottomRight: dvec2.T{x1, y1},
		Depth:       depth,
	}
}

func (q *Quad) Diagonal() float64 {
	d := dvec2.Sub(&q.TopLeft, &q.BottomRight)
	return d.Length()
}

func (q *Quad) Center() dvec2.T {
	return midpoint(&q.TopLeft, &q.BottomRight)
}

// Split 按边中点和中心分成四个子方格, 深度减一
func (q *Quad) Split() [4]Quad {
	top := midpoint(&q.TopLeft, &q.TopRight)
	bottom := midpoint(&q.BottomLeft, &q.BottomRight)
	left := midpoint(&q.TopLeft, &q.BottomLeft)
	right := midpoint(&q.TopRight, &q.BottomRight)
	center := q.Center()
	d := q.Depth - 1
	return [4]Quad{
		{TopLeft: q.TopLeft, TopRight: top, BottomLeft: left, BottomRight: center, Depth: d},
		{TopLeft: top, TopRight: q.TopRight, BottomLeft: center, BottomRight: right, Depth: d},
		{TopLeft: left, TopRight: center, BottomLeft: q.BottomLeft, BottomRight: bottom, Depth: d},
		{TopLeft: center, TopRight: right, BottomLeft: bottom, BottomRight: q.BottomRight, Depth: d},
	}
}

func midpoint(a, b *dvec2.T) dvec2.T {
	return dvec2.T{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// AdaptiveGenerator 按局部曲率细分, 弯曲处三角形更密
type AdaptiveGenerator struct {
	Config      AdaptiveConfig
	MinDiagonal float64
	fn          Sampler
}

func NewAdaptiveGenerator(fn Sampler, cfg AdaptiveConfig, resolution float64) *AdaptiveGenerator {
	return &AdaptiveGenerator{
		Config:      cfg,
		MinDiagonal: cfg.MinDiagonalScale * resolution,
		fn:          fn,
	}
}

// GenerateAdaptive 用起始方格铺满定义域并逐个细分
func GenerateAdaptive(req MeshRequest, fn Sampler, cfg AdaptiveConfig) []Vertex2D {
	g := NewAdaptiveGenerator(fn, cfg, req.Resolution)
	step := cfg.StartScale * req.Resolution
	nx := gridSteps(2*req.Extents[0], step)
	ny := gridSteps(2*req.Extents[1], step)

	vertices := make([]Vertex2D, 0, vertexCapacity(req.Extents, step))
	for i := 0; i < nx; i++ {
		x := -req.Extents[0] + float64(i)*step
		for j := 0; j < ny; j++ {
			y := -req.Extents[1] + float64(j)*step
			vertices = g.Subdivide(vertices, NewQuad(x, y, x+step, y+step, cfg.MaxDepth))
		}
	}
	return vertices
}

// Subdivide 将 q 的三角形追加到 dst.
// 深度为 D 的方格最多输出 4^D 个叶子方格.
func (g *AdaptiveGenerator) Subdivide(dst []Vertex2D, q Quad) []Vertex2D {
	if q.Depth <= 0 || q.Diagonal() < g.MinDiagonal {
		return emitQuad(dst, &q)
	}

	corners := [4]float64{
		g.fn.Eval(q.TopLeft[0], q.TopLeft[1]),
		g.fn.Eval(q.TopRight[0], q.TopRight[1]),
		g.fn.Eval(q.BottomLeft[0], q.BottomLeft[1]),
		g.fn.Eval(q.BottomRight[0], q.BottomRight[1]),
	}
	c := q.Center()
	center := g.fn.Eval(c[0], c[1])

	lo, hi, sum := corners[0], corners[0], 0.0
	for _, h := range corners {
		lo = math.Min(lo, h)
		hi = math.Max(hi, h)
		sum += h
	}
	variation := hi - lo
	deviation := math.Abs(center - sum/4)

	if variation > g.Config.HeightVariation || deviation > g.Config.CenterDeviation {
		for _, child := range q.Split() {
			dst = g.Subdivide(dst, child)
		}
		return dst
	}
	return emitQuad(dst, &q)
}

func emitQuad(dst []Vertex2D, q *Quad) []Vertex2D {
	tl := toVertex(&q.TopLeft)
	tr := toVertex(&q.TopRight)
	bl := toVertex(&q.BottomLeft)
	br := toVertex(&q.BottomRight)
	return append(dst, tl, tr, bl, tr, br, bl)
}

func toVertex(v *dvec2.T) Vertex2D {
	return Vertex2D{float32(v[0]), float32(v[1])}
}
