package surfmesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// 每次读取的顶点批量, 避免损坏的计数导致一次性大内存分配
const readBatch = 4096

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

// EntryMarshal 布局: int32 version, float32 min, float32 max, int32 count, count*(float32 x, float32 y)
func EntryMarshal(wt io.Writer, e *CacheEntry) error {
	if len(e.Vertices)%3 != 0 {
		return fmt.Errorf("vertex count %d is not a multiple of 3", len(e.Vertices))
	}
	header := struct {
		Version int32
		Min     float32
		Max     float32
		Count   int32
	}{e.Version, e.Range.Min, e.Range.Max, int32(len(e.Vertices))}
	if err := writeLittleByte(wt, &header); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}
	if err := writeLittleByte(wt, e.Vertices); err != nil {
		return fmt.Errorf("write vertices failed: %w", err)
	}
	return nil
}

// EntryUnMarshal 版本不等于 FormatVersion 时不读取剩余内容
func EntryUnMarshal(rd io.Reader) (*CacheEntry, error) {
	e := &CacheEntry{}
	if err := readLittleByte(rd, &e.Version); err != nil {
		return nil, fmt.Errorf("%w: read version: %w", ErrCorruptEntry, err)
	}
	if e.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, e.Version, FormatVersion)
	}
	if err := readLittleByte(rd, &e.Range.Min); err != nil {
		return nil, fmt.Errorf("%w: read min height: %w", ErrCorruptEntry, err)
	}
	if err := readLittleByte(rd, &e.Range.Max); err != nil {
		return nil, fmt.Errorf("%w: read max height: %w", ErrCorruptEntry, err)
	}
	var count int32
	if err := readLittleByte(rd, &count); err != nil {
		return nil, fmt.Errorf("%w: read vertex count: %w", ErrCorruptEntry, err)
	}
	if count < 0 || count%3 != 0 {
		return nil, fmt.Errorf("%w: invalid vertex count %d", ErrCorruptEntry, count)
	}

	e.Vertices = make([]Vertex2D, 0, min(int(count), readBatch))
	for remaining := int(count); remaining > 0; {
		n := min(remaining, readBatch)
		batch := make([]Vertex2D, n)
		if err := readLittleByte(rd, batch); err != nil {
			return nil, fmt.Errorf("%w: read vertices: %w", ErrCorruptEntry, err)
		}
		e.Vertices = append(e.Vertices, batch...)
		remaining -= n
	}
	return e, nil
}

func EntryReadFrom(path string) (*CacheEntry, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return EntryUnMarshal(bufio.NewReader(f))
}

// EntryWriteTo 先写入同目录临时文件再重命名, 中途失败不会留下可读的半个条目
func EntryWriteTo(path string, entry *CacheEntry) (err error) {
	dir, name := filepath.Dir(path), filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err = EntryMarshal(w, entry); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
