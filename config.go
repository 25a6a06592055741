package surfmesh

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	dvec2 "github.com/flywave/go3d/float64/vec2"
	"gopkg.in/yaml.v3"
)

const (
	EnvCacheDir = "SURFMESH_CACHE_DIR"
	EnvLogLevel = "SURFMESH_LOG_LEVEL"
)

// Config 命令行和会话的配置
type Config struct {
	CacheDir    string         `yaml:"cache_dir"`
	CatalogPath string         `yaml:"catalog_path"`
	LogLevel    string         `yaml:"log_level"`
	Resolution  float64        `yaml:"resolution"`
	Extents     [2]float64     `yaml:"extents,flow"`
	Adaptive    bool           `yaml:"adaptive"`
	Tuning      AdaptiveConfig `yaml:"tuning"`
	// Material 导出 GLB 时使用, 为空时使用 DefaultMaterial
	Material *Material `yaml:"material,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		CacheDir:   DefaultCacheDir(),
		LogLevel:   "info",
		Resolution: 0.1,
		Extents:    [2]float64{5, 5},
		Adaptive:   true,
		Tuning:     DefaultAdaptiveConfig(),
	}
}

// DefaultCacheDir 优先使用 SURFMESH_CACHE_DIR, 否则使用用户缓存目录
func DefaultCacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "surfmesh", "cache")
	}
	return filepath.Join(cacheDir, "surfmesh", "cache")
}

// LoadConfig path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if _, err := c.Request("0"); err != nil {
		return fmt.Errorf("default mesh parameters: %w", err)
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Request 使用配置中的分辨率、范围和模式构造请求
func (c *Config) Request(expression string) (MeshRequest, error) {
	return NewMeshRequest(expression, c.Resolution, dvec2.T(c.Extents), c.Adaptive)
}
