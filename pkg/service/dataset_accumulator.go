package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"product-annotator/pkg/model"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// snapshotLayout 快照文件名使用秒级时间戳，同一秒内的两次落盘会写到同一个文件
const snapshotLayout = "2006-01-02T15:04:05"

var datasetTable = model.DatasetRow{}.TableName()

var (
	createDatasetTableSQL = fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
	seq           BIGINT  NOT NULL,
	image_path    VARCHAR NOT NULL,
	product_label VARCHAR NOT NULL
)`, datasetTable)
	insertRowSQL     = fmt.Sprintf("INSERT INTO %s (seq, image_path, product_label) VALUES (?, ?, ?)", datasetTable)
	countRowsSQL     = fmt.Sprintf("SELECT count(*) FROM %s", datasetTable)
	selectOrderedSQL = fmt.Sprintf("SELECT image_path, product_label FROM %s ORDER BY seq", datasetTable)
)

// DatasetAccumulator 在 DuckDB 中维护 (图片路径, 标签) 表，
// Flush 将整张表导出为一个新的 parquet 快照，导出后不清空表
type DatasetAccumulator struct {
	mu  sync.Mutex
	db  *sql.DB
	dir string
	now func() time.Time
	seq int64
}

type AccumulatorOption func(*DatasetAccumulator)

// WithClock 替换生成快照文件名所用的时钟
func WithClock(now func() time.Time) AccumulatorOption {
	return func(a *DatasetAccumulator) {
		a.now = now
	}
}

// NewDatasetAccumulator 在给定连接上创建一张空的 dataset 表
func NewDatasetAccumulator(ctx context.Context, duckDB *sql.DB, dir string, opts ...AccumulatorOption) (*DatasetAccumulator, error) {
	if duckDB == nil {
		return nil, errors.New("DuckDB 连接未初始化")
	}
	if _, err := duckDB.ExecContext(ctx, createDatasetTableSQL); err != nil {
		return nil, errors.Wrapf(err, "创建 %s 表失败", datasetTable)
	}
	a := &DatasetAccumulator{
		db:  duckDB,
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AddRow 追加一行；标签可以为空
func (a *DatasetAccumulator) AddRow(ctx context.Context, imagePath, label string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	zap.S().Infof("添加数据集条目: image: path %s, label: %s", imagePath, label)
	next := a.seq + 1
	if _, err := a.db.ExecContext(ctx, insertRowSQL, next, imagePath, label); err != nil {
		return errors.Wrapf(err, "写入 %s 失败: %s", datasetTable, imagePath)
	}
	a.seq = next
	return nil
}

// Flush 把当前整张表按插入顺序写入 <dir>/<时间戳>.parquet 并返回路径。
// 失败时表内容不受影响，可以再次重试
func (a *DatasetAccumulator) Flush(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", errors.Wrapf(err, "创建数据集目录失败: %s", a.dir)
	}
	path := filepath.Join(a.dir, a.now().Format(snapshotLayout)+".parquet")
	zap.S().Infof("保存数据集到文件: %s", path)

	query := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", selectOrderedSQL, quoteLiteral(path))
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return "", errors.Wrapf(err, "写入 parquet 失败: %s", path)
	}
	return path, nil
}

// Size 返回当前行数
func (a *DatasetAccumulator) Size(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n int
	if err := a.db.QueryRowContext(ctx, countRowsSQL).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "统计 %s 行数失败", datasetTable)
	}
	return n, nil
}

// Rows 按插入顺序返回全部行
func (a *DatasetAccumulator) Rows(ctx context.Context) ([]model.DatasetRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return queryRows(ctx, a.db, selectOrderedSQL)
}

// RunPeriodicFlush 每隔 interval 落盘一次，直到 ctx 结束；失败只记录日志
func (a *DatasetAccumulator) RunPeriodicFlush(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Flush(ctx); err != nil {
				zap.S().Errorf("定时保存数据集失败: %v", err)
			}
		}
	}
}

// ReadSnapshot 读取一个 parquet 快照
func ReadSnapshot(ctx context.Context, duckDB *sql.DB, path string) ([]model.DatasetRow, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "快照文件不可读: %s", path)
	}
	query := fmt.Sprintf("SELECT image_path, product_label FROM read_parquet(%s)", quoteLiteral(path))
	return queryRows(ctx, duckDB, query)
}

func queryRows(ctx context.Context, duckDB *sql.DB, query string) ([]model.DatasetRow, error) {
	rows, err := duckDB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "查询数据失败")
	}
	defer rows.Close()

	result := make([]model.DatasetRow, 0)
	for rows.Next() {
		var row model.DatasetRow
		if err := rows.Scan(&row.ImagePath, &row.ProductLabel); err != nil {
			return nil, errors.Wrap(err, "扫描记录失败")
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// quoteLiteral 生成 SQL 字符串字面量；COPY 与 read_parquet 的路径不支持参数绑定
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
