package surfmesh

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CatalogRecord 记录缓存键对应的请求, 缓存文件名本身无法反推表达式
type CatalogRecord struct {
	Key         string `gorm:"primaryKey;column:cache_key"`
	Expression  string
	Resolution  float64
	ExtentX     float64
	ExtentY     float64
	Adaptive    bool
	Version     int32
	VertexCount int
	MinHeight   float32
	MaxHeight   float32
	UpdatedAt   time.Time `gorm:"index"`
}

// Catalog SQLite 索引, 与缓存目录相互独立
type Catalog struct {
	db     *gorm.DB
	logger *slog.Logger
}

func OpenCatalog(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(&CatalogRecord{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	logger.Debug("catalog opened", "path", path)
	return &Catalog{db: db, logger: logger}, nil
}

func (c *Catalog) Record(m *Mesh) error {
	rec := CatalogRecord{
		Key:         m.Key,
		Expression:  m.Request.Expression,
		Resolution:  m.Request.Resolution,
		ExtentX:     m.Request.Extents[0],
		ExtentY:     m.Request.Extents[1],
		Adaptive:    m.Request.Adaptive,
		Version:     FormatVersion,
		VertexCount: len(m.Vertices),
		MinHeight:   m.Range.Min,
		MaxHeight:   m.Range.Max,
	}
	return c.db.Save(&rec).Error
}

// Lookup 不存在时返回 (nil, nil)
func (c *Catalog) Lookup(key string) (*CatalogRecord, error) {
	var rec CatalogRecord
	err := c.db.First(&rec, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List 按更新时间倒序
func (c *Catalog) List() ([]CatalogRecord, error) {
	var recs []CatalogRecord
	err := c.db.Order("updated_at desc").Find(&recs).Error
	return recs, err
}

func (c *Catalog) Forget(key string) error {
	return c.db.Delete(&CatalogRecord{}, "cache_key = ?", key).Error
}

func (c *Catalog) Clear() error {
	return c.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CatalogRecord{}).Error
}

func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
