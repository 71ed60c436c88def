package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// DuckDBConfig 数据集表所在的 DuckDB 实例
type DuckDBConfig struct {
	DBPath      string `json:"dbPath" yaml:"dbPath"`           // 为空时使用内存库
	Threads     int    `json:"threads" yaml:"threads"`         // 0 表示由 DuckDB 自行决定
	MemoryLimit string `json:"memoryLimit" yaml:"memoryLimit"` // 如 512MB、2GB
}

func (d *DuckDBConfig) Validate() []error {
	var errs = make([]error, 0)
	if d.Threads < 0 {
		errs = append(errs, errors.Errorf("duckdb.threads 不能为负数: %d", d.Threads))
	}
	if d.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(d.DBPath), 0755); err != nil {
			errs = append(errs, errors.Errorf("创建 DuckDB 目录失败: %v", err))
		}
	}
	return errs
}

func NewDefaultDuckDBConfig() *DuckDBConfig {
	return &DuckDBConfig{}
}

// DSN 形如 path?memory_limit=2GB&threads=4，参数部分交给 duckdb 驱动解析
func (d *DuckDBConfig) DSN() string {
	params := url.Values{}
	if d.Threads > 0 {
		params.Set("threads", strconv.Itoa(d.Threads))
	}
	if d.MemoryLimit != "" {
		params.Set("memory_limit", d.MemoryLimit)
	}
	if len(params) == 0 {
		return d.DBPath
	}
	return d.DBPath + "?" + params.Encode()
}
