package db

import (
	"context"
	"database/sql"

	"product-annotator/config"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenDuckDB 打开 duckdb 连接；DBPath 为空时使用进程内的内存库。
// 同一个 *sql.DB 下的所有连接共享同一个数据库实例
func OpenDuckDB(ctx context.Context, cfg *config.DuckDBConfig) (*sql.DB, error) {
	duckDB, err := sql.Open("duckdb", cfg.DSN())
	if err != nil {
		zap.S().Errorf("连接 duckdb 失败: %v", err)
		return nil, errors.Wrap(err, "连接 duckdb 失败")
	}

	// 测试连接
	if err = duckDB.PingContext(ctx); err != nil {
		zap.S().Errorf("duckdb 连接测试失败: %v", err)
		_ = duckDB.Close()
		return nil, errors.Wrap(err, "duckdb 连接测试失败")
	}

	if cfg.DBPath == "" {
		zap.S().Debug("duckdb 初始化完成 (内存库)...")
	} else {
		zap.S().Debugf("duckdb 初始化完成 (%s)...", cfg.DBPath)
	}
	return duckDB, nil
}
