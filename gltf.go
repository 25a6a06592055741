package surfmesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
)

const (
	// GLTFVersion 定义GLTF规范版本
	GLTFVersion = "2.0"

	// PaddingChar 用于二进制填充的字符
	PaddingChar = 0x20
)

// CreateDoc 创建一个新的GLTF文档
func CreateDoc() *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   GLTFVersion,
			Generator: "surfmesh",
		},
		Scenes:  []*gltf.Scene{{}},
		Buffers: []*gltf.Buffer{{}},
	}

	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex

	return doc
}

// BuildGltf 将曲面写入文档: POSITION, NORMAL, COLOR_0, 无索引的三角形图元, 每个曲面一个材质
func BuildGltf(doc *gltf.Document, s *Surface) error {
	if len(s.Vertices) == 0 {
		return errors.New("surface has no vertices")
	}
	if len(s.Vertices)%3 != 0 {
		return errors.New("surface vertex count is not a multiple of 3")
	}
	buffer := doc.Buffers[0]
	buf := bytes.NewBuffer(nil)

	appendView := func(data interface{}) uint32 {
		view := &gltf.BufferView{
			Buffer:     0,
			ByteOffset: buffer.ByteLength + uint32(buf.Len()),
			Target:     gltf.TargetArrayBuffer,
		}
		binary.Write(buf, binary.LittleEndian, data)
		view.ByteLength = buffer.ByteLength + uint32(buf.Len()) - view.ByteOffset
		doc.BufferViews = append(doc.BufferViews, view)
		return uint32(len(doc.BufferViews) - 1)
	}

	count := uint32(len(s.Vertices))
	box := s.GetBoundbox()

	posView := appendView(s.Vertices)
	posAcc := uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    &posView,
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         count,
		Min:           []float32{float32(box[0]), float32(box[1]), float32(box[2])},
		Max:           []float32{float32(box[3]), float32(box[4]), float32(box[5])},
	})

	attrs := gltf.Attribute{"POSITION": posAcc}

	if len(s.Normals) == len(s.Vertices) {
		nlView := appendView(s.Normals)
		attrs["NORMAL"] = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    &nlView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         count,
		})
	}

	if len(s.Colors) == len(s.Vertices) {
		clView := appendView(s.Colors)
		attrs["COLOR_0"] = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    &clView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         count,
		})
	}

	buffer.ByteLength += uint32(buf.Len())
	buffer.Data = append(buffer.Data, buf.Bytes()...)

	mtlIndex := fillMaterial(doc, s.Name, s.Material)
	meshIndex := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: s.Name,
		Primitives: []*gltf.Primitive{{
			Attributes: attrs,
			Material:   &mtlIndex,
			Mode:       gltf.PrimitiveTriangles,
		}},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: s.Name,
		Mesh: &meshIndex,
		Extras: map[string]interface{}{
			"minHeight": s.Range.Min,
			"maxHeight": s.Range.Max,
		},
	})
	return nil
}

// SurfacesToGltf 每个曲面一个节点
func SurfacesToGltf(surfaces []*Surface) (*gltf.Document, error) {
	doc := CreateDoc()
	for _, s := range surfaces {
		if err := BuildGltf(doc, s); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

type calcSizeWriter struct {
	writer *bytes.Buffer
	Size   int
}

func (w *calcSizeWriter) Write(p []byte) (n int, err error) {
	n, err = w.writer.Write(p)
	w.Size += n
	return n, err
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

// GetGltfBinary 编码为 GLB 并按 paddingUnit 对齐
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	w := &calcSizeWriter{writer: bytes.NewBuffer(nil)}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if paddingUnit <= 0 {
		return w.writer.Bytes(), nil
	}
	padding := calcPadding(w.Size, paddingUnit)
	if padding == 0 {
		return w.writer.Bytes(), nil
	}
	pad := bytes.Repeat([]byte{PaddingChar}, padding)
	w.Write(pad)
	return w.writer.Bytes(), nil
}

// ExportGLB 将曲面以 GLB 写入 wt
func ExportGLB(wt io.Writer, surfaces ...*Surface) error {
	doc, err := SurfacesToGltf(surfaces)
	if err != nil {
		return err
	}
	bt, err := GetGltfBinary(doc, 4)
	if err != nil {
		return err
	}
	_, err = wt.Write(bt)
	return err
}

func ExportGLBFile(path string, surfaces ...*Surface) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportGLB(f, surfaces...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
