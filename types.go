package surfmesh

import (
	"errors"

	"github.com/flywave/go3d/vec2"
)

const CACHE_PREFIX string = "vertices_"
const CACHE_EXT string = ".cache"
const V1 int32 = 1

// FormatVersion 当前缓存文件格式版本
const FormatVersion = V1

// KeyLength 缓存键保留的十六进制字符数 (64 bit)
const KeyLength = 16

var (
	ErrInvalidRequest  = errors.New("surfmesh: invalid mesh request")
	ErrExpression      = errors.New("surfmesh: invalid expression")
	ErrCacheMiss       = errors.New("surfmesh: cache miss")
	ErrVersionMismatch = errors.New("surfmesh: cache version mismatch")
	ErrCorruptEntry    = errors.New("surfmesh: corrupt cache entry")
)

// Vertex2D 函数定义域内的一个点, 高度在着色阶段计算
type Vertex2D = vec2.T

// HeightRange 采样得到的高度区间, 用于颜色归一化
type HeightRange struct {
	Min float32 `json:"min" yaml:"min"`
	Max float32 `json:"max" yaml:"max"`
}

// Span 返回 Max-Min
func (r HeightRange) Span() float32 {
	return r.Max - r.Min
}

// Normalize 将高度映射到 [0,1], 区间退化时返回 0.5
func (r HeightRange) Normalize(h float32) float32 {
	span := r.Span()
	if span <= 0 {
		return 0.5
	}
	t := (h - r.Min) / span
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// CacheEntry 持久化的网格数据
type CacheEntry struct {
	Version  int32       `json:"version"`
	Range    HeightRange `json:"range"`
	Vertices []Vertex2D  `json:"-"`
}

// Mesh 一次网格请求的结果
type Mesh struct {
	Request  MeshRequest `json:"request"`
	Key      string      `json:"key"`
	Vertices []Vertex2D  `json:"-"`
	Range    HeightRange `json:"range"`
	Cached   bool        `json:"cached"`
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

func (m *Mesh) TriangleCount() int {
	return len(m.Vertices) / 3
}

// Entry 转换为可写入缓存的条目
func (m *Mesh) Entry() *CacheEntry {
	return &CacheEntry{Version: FormatVersion, Range: m.Range, Vertices: m.Vertices}
}
