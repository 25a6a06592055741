package surfmesh

import (
	"fmt"
	"math"

	dvec2 "github.com/flywave/go3d/float64/vec2"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MaxCells 单个请求允许的最大网格数, 超出时预分配的顶点数组会溢出或耗尽内存
const MaxCells = 1 << 22

// MeshRequest 完全决定生成结果, 缓存键由其字段派生
type MeshRequest struct {
	Expression string  `json:"expression" validate:"required"`
	Resolution float64 `json:"resolution" validate:"gt=0"`
	Extents    dvec2.T `json:"extents" validate:"dive,gt=0"`
	Adaptive   bool    `json:"adaptive"`
}

func NewMeshRequest(expression string, resolution float64, extents dvec2.T, adaptive bool) (MeshRequest, error) {
	req := MeshRequest{
		Expression: expression,
		Resolution: resolution,
		Extents:    extents,
		Adaptive:   adaptive,
	}
	if err := req.Validate(); err != nil {
		return MeshRequest{}, err
	}
	return req, nil
}

func (r MeshRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for _, v := range []float64{r.Resolution, r.Extents[0], r.Extents[1]} {
		if math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite resolution or extents", ErrInvalidRequest)
		}
	}
	if n := cellCount(r.Extents, r.Resolution); n > MaxCells {
		return fmt.Errorf("%w: %.0f grid cells exceeds limit %d", ErrInvalidRequest, n, MaxCells)
	}
	return nil
}

// cellCount 以浮点数计算格子总数, 不会整数溢出
func cellCount(extents [2]float64, step float64) float64 {
	nx := math.Ceil(2*extents[0]/step - 1e-9)
	ny := math.Ceil(2*extents[1]/step - 1e-9)
	return math.Max(nx, 0) * math.Max(ny, 0)
}

// vertexCapacity 预分配的顶点数, 按 MaxCells 截断
func vertexCapacity(extents [2]float64, step float64) int {
	n := cellCount(extents, step)
	if !(n <= MaxCells) {
		n = MaxCells
	}
	return int(n) * 6
}

// gridSteps 返回以 step 为边长覆盖 span 所需的格子数, 整除时不多出一格
func gridSteps(span, step float64) int {
	n := int(math.Ceil(span/step - 1e-9))
	if n < 0 {
		return 0
	}
	return n
}

// sampleSteps 返回闭区间 [0,span] 内以 step 递进的采样点数减一
func sampleSteps(span, step float64) int {
	n := int(math.Floor(span/step + 1e-9))
	if n < 0 {
		return 0
	}
	return n
}
