package surfmesh

import (
	"github.com/qmuntal/gltf"
)

// Material 曲面的 PBR 材质, 基础颜色与顶点颜色相乘
type Material struct {
	Color        [3]byte `json:"color" yaml:"color,flow"`
	Transparency float32 `json:"transparency" yaml:"transparency"`
	Emissive     [3]byte `json:"emissive" yaml:"emissive,flow"`
	Metallic     float32 `json:"metallic" yaml:"metallic"`
	Roughness    float32 `json:"roughness" yaml:"roughness"`
}

// DefaultMaterial 白色基础色, 只显示顶点颜色
func DefaultMaterial() *Material {
	return &Material{
		Color:     [3]byte{255, 255, 255},
		Metallic:  0,
		Roughness: 0.8,
	}
}

func (m *Material) GetColor() [3]byte {
	return m.Color
}

func (m *Material) GetEmissive() [3]byte {
	return m.Emissive
}

func (m *Material) IsTransparent() bool {
	return m.Transparency > 0
}

// toGltf 曲面两面都可见
func (m *Material) toGltf(name string) *gltf.Material {
	gm := &gltf.Material{Name: name, DoubleSided: true, AlphaMode: gltf.AlphaOpaque}
	if m.IsTransparent() {
		gm.AlphaMode = gltf.AlphaBlend
	}
	mc := m.Metallic
	rs := m.Roughness
	gm.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{float32(m.Color[0]) / 255, float32(m.Color[1]) / 255, float32(m.Color[2]) / 255, 1 - m.Transparency},
		MetallicFactor:  &mc,
		RoughnessFactor: &rs,
	}
	gm.EmissiveFactor[0] = float32(m.Emissive[0]) / 255
	gm.EmissiveFactor[1] = float32(m.Emissive[1]) / 255
	gm.EmissiveFactor[2] = float32(m.Emissive[2]) / 255
	return gm
}

// fillMaterial 追加材质并返回索引, mtl 为 nil 时使用 DefaultMaterial
func fillMaterial(doc *gltf.Document, name string, mtl *Material) uint32 {
	if mtl == nil {
		mtl = DefaultMaterial()
	}
	doc.Materials = append(doc.Materials, mtl.toGltf(name))
	return uint32(len(doc.Materials) - 1)
}
