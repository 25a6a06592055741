package surfmesh

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Function 会话中的一个函数实例, 可在生成过程中并发读取
type Function struct {
	ID      int
	Request MeshRequest

	mu     sync.RWMutex
	active bool
	mesh   *Mesh
}

func (f *Function) IsActive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active
}

func (f *Function) SetActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = active
}

// Mesh 尚未生成时为 nil
func (f *Function) Mesh() *Mesh {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mesh
}

func (f *Function) setMesh(m *Mesh) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mesh = m
}

type SessionOption func(*Session)

func WithCatalog(c *Catalog) SessionOption {
	return func(s *Session) {
		s.catalog = c
	}
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// Session 拥有函数集合并负责 缓存 -> 生成 -> 回写 的流程.
// 相同请求的并发生成会合并为一次.
type Session struct {
	cache   *VertexCache
	catalog *Catalog
	logger  *slog.Logger
	group   singleflight.Group

	mu        sync.Mutex
	functions []*Function
	nextID    int
}

func NewSession(cache *VertexCache, opts ...SessionOption) *Session {
	s := &Session{cache: cache, nextID: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Session) Cache() *VertexCache {
	return s.cache
}

// GenerateMesh 先查缓存, 未命中时生成并回写. 返回的 Mesh 不可修改.
func (s *Session) GenerateMesh(req MeshRequest) (*Mesh, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := s.cache.Key(req)
	v, _, shared := s.group.Do(key, func() (interface{}, error) {
		return s.generate(req, key), nil
	})
	if shared {
		s.logger.Debug("joined in-flight generation", "key", key)
	}
	return v.(*Mesh), nil
}

func (s *Session) generate(req MeshRequest, key string) *Mesh {
	entry, err := s.cache.Load(req)
	if err == nil {
		s.logger.Info("cache hit", "key", key, "vertices", len(entry.Vertices))
		return &Mesh{Request: req, Key: key, Vertices: entry.Vertices, Range: entry.Range, Cached: true}
	}
	s.logger.Debug("cache miss", "key", key, "reason", err)

	start := time.Now()
	fn, err := Compile(req.Expression)
	if err != nil {
		s.logger.Warn("expression will evaluate to fallback", "expression", req.Expression, "error", err)
	}

	var vertices []Vertex2D
	if req.Adaptive {
		vertices = GenerateAdaptive(req, fn, s.cache.Tuning())
	} else {
		vertices = GenerateUniform(req)
	}
	heights := SampleHeightRange(req, fn)
	if n := fn.Failures(); n > 0 && fn.Err() == nil {
		s.logger.Warn("evaluation fell back for some samples", "expression", req.Expression, "samples", n)
	}

	m := &Mesh{Request: req, Key: key, Vertices: vertices, Range: heights}
	s.logger.Info("generated mesh", "key", key, "adaptive", req.Adaptive,
		"vertices", len(vertices), "min", heights.Min, "max", heights.Max, "elapsed", time.Since(start))

	if err := s.cache.Save(req, m.Entry()); err != nil {
		s.logger.Warn("failed to cache vertices", "key", key, "error", err)
		return m
	}
	if s.catalog != nil {
		if err := s.catalog.Record(m); err != nil {
			s.logger.Warn("failed to record catalog entry", "key", key, "error", err)
		}
	}
	return m
}

// Add 加入一个激活的函数实例, 不立即生成
func (s *Session) Add(req MeshRequest) (*Function, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &Function{ID: s.nextID, Request: req, active: true}
	s.nextID++
	s.functions = append(s.functions, f)
	return f, nil
}

func (s *Session) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.functions {
		if f.ID == id {
			s.functions = append(s.functions[:i], s.functions[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) Get(id int) (*Function, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.functions {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Functions 按加入顺序返回副本
func (s *Session) Functions() []*Function {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Function, len(s.functions))
	copy(out, s.functions)
	return out
}

func (s *Session) Active() []*Function {
	var out []*Function
	for _, f := range s.Functions() {
		if f.IsActive() {
			out = append(out, f)
		}
	}
	return out
}

func (s *Session) Update(f *Function) error {
	m, err := s.GenerateMesh(f.Request)
	if err != nil {
		return fmt.Errorf("function %d: %w", f.ID, err)
	}
	f.setMesh(m)
	return nil
}

// UpdateAll 依次生成所有激活的函数
func (s *Session) UpdateAll() error {
	var errs []error
	for _, f := range s.Active() {
		if err := s.Update(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
