package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"product-annotator/config"
	"product-annotator/pkg/db"
	"product-annotator/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDuckDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenDuckDB(context.Background(), config.NewDefaultDuckDBConfig())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAccumulator(t *testing.T, clock *fakeClock) (*DatasetAccumulator, *sql.DB, string) {
	t.Helper()
	conn := openTestDuckDB(t)
	dir := filepath.Join(t.TempDir(), "datasets")
	a, err := NewDatasetAccumulator(context.Background(), conn, dir, WithClock(clock.Now))
	require.NoError(t, err)
	return a, conn, dir
}

func TestDatasetAccumulatorAddRowAndFlush(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 30, 15, 0, time.Local)}
	a, conn, dir := newTestAccumulator(t, clock)

	size, err := a.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	want := []model.DatasetRow{
		{ImagePath: "/tmp/a.jpg", ProductLabel: "Cola Diet"},
		{ImagePath: "/tmp/b.jpg", ProductLabel: ""},
		{ImagePath: "/tmp/it's.jpg", ProductLabel: "Fanta"},
	}
	for i, r := range want {
		require.NoError(t, a.AddRow(ctx, r.ImagePath, r.ProductLabel))
		size, err := a.Size(ctx)
		require.NoError(t, err)
		assert.Equal(t, i+1, size)
	}

	path, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-05-01T10:30:15.parquet"), path)

	got, err := ReadSnapshot(ctx, conn, path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// 落盘不清空表
	size, err = a.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
	rows, err := a.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, rows)
}

func TestDatasetAccumulatorFlushTwice(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 30, 15, 0, time.Local)}
	a, conn, dir := newTestAccumulator(t, clock)
	require.NoError(t, a.AddRow(ctx, "/tmp/a.jpg", "Cola"))

	first, err := a.Flush(ctx)
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	r1, err := ReadSnapshot(ctx, conn, first)
	require.NoError(t, err)
	r2, err := ReadSnapshot(ctx, conn, second)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	// 同一秒内再次落盘覆盖同名文件
	third, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, third)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDatasetAccumulatorFlushEmptyTable(t *testing.T) {
	ctx := context.Background()
	a, conn, _ := newTestAccumulator(t, &fakeClock{t: time.Unix(0, 0)})
	path, err := a.Flush(ctx)
	require.NoError(t, err)
	rows, err := ReadSnapshot(ctx, conn, path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDatasetAccumulatorFlushFailureKeepsRows(t *testing.T) {
	ctx := context.Background()
	conn := openTestDuckDB(t)

	// 用普通文件占住目录位置，使 MkdirAll 失败
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	a, err := NewDatasetAccumulator(ctx, conn, filepath.Join(blocker, "datasets"))
	require.NoError(t, err)

	require.NoError(t, a.AddRow(ctx, "/tmp/a.jpg", "Cola"))
	_, err = a.Flush(ctx)
	assert.Error(t, err)

	size, err := a.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestNewDatasetAccumulatorStartsEmpty(t *testing.T) {
	ctx := context.Background()
	conn := openTestDuckDB(t)
	dir := t.TempDir()

	a, err := NewDatasetAccumulator(ctx, conn, dir)
	require.NoError(t, err)
	require.NoError(t, a.AddRow(ctx, "/tmp/a.jpg", "Cola"))

	b, err := NewDatasetAccumulator(ctx, conn, dir)
	require.NoError(t, err)
	size, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestNewDatasetAccumulatorRequiresConnection(t *testing.T) {
	_, err := NewDatasetAccumulator(context.Background(), nil, t.TempDir())
	assert.Error(t, err)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(context.Background(), openTestDuckDB(t), filepath.Join(t.TempDir(), "none.parquet"))
	assert.Error(t, err)
}

func TestRunPeriodicFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := openTestDuckDB(t)
	dir := t.TempDir()
	a, err := NewDatasetAccumulator(ctx, conn, dir)
	require.NoError(t, err)
	require.NoError(t, a.AddRow(ctx, "/tmp/a.jpg", "Cola"))

	done := make(chan struct{})
	go func() {
		a.RunPeriodicFlush(ctx, 20*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunPeriodicFlush did not return after cancel")
	}
}

func TestRunPeriodicFlushDisabled(t *testing.T) {
	a := &DatasetAccumulator{}
	// interval 为 0 时立即返回
	a.RunPeriodicFlush(context.Background(), 0)
}

func TestDatasetAccumulatorUsesModelTable(t *testing.T) {
	ctx := context.Background()
	a, conn, _ := newTestAccumulator(t, &fakeClock{t: time.Unix(0, 0)})
	require.NoError(t, a.AddRow(ctx, "/tmp/a.jpg", "Cola"))

	var n int
	query := "SELECT count(*) FROM " + model.DatasetRow{}.TableName()
	require.NoError(t, conn.QueryRowContext(ctx, query).Scan(&n))
	assert.Equal(t, 1, n)
}
