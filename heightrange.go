package surfmesh

import "math"

// SampleHeightRange 以两倍分辨率的步长采样整个定义域, 返回观测到的高度区间
func SampleHeightRange(req MeshRequest, fn Sampler) HeightRange {
	stride := 2 * req.Resolution
	if !(stride > 0) {
		return HeightRange{}
	}
	nx := sampleSteps(2*req.Extents[0], stride)
	ny := sampleSteps(2*req.Extents[1], stride)

	minH := math.Inf(1)
	maxH := math.Inf(-1)
	for i := 0; i <= nx; i++ {
		x := -req.Extents[0] + float64(i)*stride
		for j := 0; j <= ny; j++ {
			y := -req.Extents[1] + float64(j)*stride
			h := fn.Eval(x, y)
			if math.IsNaN(h) || math.IsInf(h, 0) {
				h = Fallback
			}
			minH = math.Min(minH, h)
			maxH = math.Max(maxH, h)
		}
	}
	if minH > maxH {
		return HeightRange{}
	}
	return HeightRange{Min: float32(minH), Max: float32(maxH)}
}
