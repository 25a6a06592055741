package surfmesh

// GenerateUniform 以 resolution 为边长铺满定义域, 每个方格输出两个三角形.
// 该路径不求值, 高度留给着色阶段.
func GenerateUniform(req MeshRequest) []Vertex2D {
	res := req.Resolution
	nx := gridSteps(2*req.Extents[0], res)
	ny := gridSteps(2*req.Extents[1], res)

	vertices := make([]Vertex2D, 0, vertexCapacity(req.Extents, res))
	for i := 0; i < nx; i++ {
		x := -req.Extents[0] + float64(i)*res
		for j := 0; j < ny; j++ {
			y := -req.Extents[1] + float64(j)*res
			x0, y0 := float32(x), float32(y)
			x1, y1 := float32(x+res), float32(y+res)

			vertices = append(vertices,
				Vertex2D{x0, y0}, Vertex2D{x1, y0}, Vertex2D{x0, y1},
				Vertex2D{x1, y0}, Vertex2D{x1, y1}, Vertex2D{x0, y1},
			)
		}
	}
	return vertices
}
