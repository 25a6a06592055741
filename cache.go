package surfmesh

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// VertexCache 以请求内容寻址的磁盘缓存, 每个键一个文件.
// 不加锁, 也不做淘汰.
type VertexCache struct {
	dir    string
	tuning AdaptiveConfig
	logger *slog.Logger
}

// NewVertexCache 目录不存在时创建. tuning 与默认值不同时参与自适应请求的键.
func NewVertexCache(dir string, tuning AdaptiveConfig, logger *slog.Logger) (*VertexCache, error) {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("adaptive config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("vertex cache directory", "dir", dir)
	return &VertexCache{dir: dir, tuning: tuning, logger: logger}, nil
}

func (c *VertexCache) Dir() string {
	return c.dir
}

func (c *VertexCache) Tuning() AdaptiveConfig {
	return c.tuning
}

// CanonicalString "{expression}_{resolution}_{extents.x}_{extents.y}_{adaptive}"
func CanonicalString(req MeshRequest, tuning AdaptiveConfig) string {
	s := strings.Join([]string{
		req.Expression,
		formatFloat(req.Resolution),
		formatFloat(req.Extents[0]),
		formatFloat(req.Extents[1]),
		formatBool(req.Adaptive),
	}, "_")
	if req.Adaptive && !tuning.IsDefault() {
		s += "_" + strings.Join([]string{
			strconv.Itoa(tuning.MaxDepth),
			formatFloat(tuning.StartScale),
			formatFloat(tuning.MinDiagonalScale),
			formatFloat(tuning.HeightVariation),
			formatFloat(tuning.CenterDeviation),
		}, "_")
	}
	return s
}

// Key SHA-256 的前 KeyLength 个大写十六进制字符
func Key(req MeshRequest, tuning AdaptiveConfig) string {
	sum := sha256.Sum256([]byte(CanonicalString(req, tuning)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:KeyLength]
}

func (c *VertexCache) Key(req MeshRequest) string {
	return Key(req, c.tuning)
}

func (c *VertexCache) Path(req MeshRequest) string {
	return c.pathForKey(c.Key(req))
}

func (c *VertexCache) pathForKey(key string) string {
	return filepath.Join(c.dir, CACHE_PREFIX+key+CACHE_EXT)
}

// Load 未命中时返回的错误均包装 ErrCacheMiss
func (c *VertexCache) Load(req MeshRequest) (*CacheEntry, error) {
	key := c.Key(req)
	entry, err := EntryReadFrom(c.pathForKey(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cache read error", "key", key, "error", err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCacheMiss, key, err)
	}
	c.logger.Debug("loaded vertices from cache", "key", key, "vertices", len(entry.Vertices))
	return entry, nil
}

// Save 版本为 0 时写入 FormatVersion, 其他版本拒绝写入
func (c *VertexCache) Save(req MeshRequest, entry *CacheEntry) error {
	key := c.Key(req)
	stamped := *entry
	switch stamped.Version {
	case 0:
		stamped.Version = FormatVersion
	case FormatVersion:
	default:
		return fmt.Errorf("save cache entry %s: %w: got %d, want %d", key, ErrVersionMismatch, entry.Version, FormatVersion)
	}
	if err := EntryWriteTo(c.pathForKey(key), &stamped); err != nil {
		return fmt.Errorf("save cache entry %s: %w", key, err)
	}
	c.logger.Debug("cached vertices", "key", key, "vertices", len(entry.Vertices))
	return nil
}

func (c *VertexCache) Remove(req MeshRequest) error {
	err := os.Remove(c.Path(req))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Entries 返回磁盘上所有条目的键
func (c *VertexCache) Entries() ([]string, error) {
	des, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, CACHE_PREFIX) || !strings.HasSuffix(name, CACHE_EXT) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, CACHE_PREFIX), CACHE_EXT))
	}
	return keys, nil
}

// Clear 删除所有条目和遗留的临时文件
func (c *VertexCache) Clear() error {
	des, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, CACHE_PREFIX) {
			continue
		}
		if !strings.HasSuffix(name, CACHE_EXT) && !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// formatFloat 最短往返表示, 与 .NET double.ToString() 相同:
// 小数点位置超过 max(有效位数, 15) 或小于 -3 时使用 "1E+15" / "1E-05" 形式.
func formatFloat(v float64) string {
	sign := ""
	if math.Signbit(v) {
		sign = "-"
		v = -v
	}
	// d.ddde±XX
	s := strconv.FormatFloat(v, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	digits := strings.Replace(mant, ".", "", 1)
	e, _ := strconv.Atoi(exp)
	scale := e + 1

	if scale > max(len(digits), 15) || scale < -3 {
		m := digits[:1]
		if len(digits) > 1 {
			m += "." + digits[1:]
		}
		esign := "+"
		if e < 0 {
			esign = "-"
			e = -e
		}
		return fmt.Sprintf("%s%sE%s%02d", sign, m, esign, e)
	}
	switch {
	case scale <= 0:
		return sign + "0." + strings.Repeat("0", -scale) + digits
	case scale >= len(digits):
		return sign + digits + strings.Repeat("0", scale-len(digits))
	default:
		return sign + digits[:scale] + "." + digits[scale:]
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
