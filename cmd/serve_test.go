package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"product-annotator/config"
	"product-annotator/pkg/ocr"
	"product-annotator/pkg/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGlobalConfig(t *testing.T) *config.GlobalConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewDefaultGlobalConfig()
	cfg.AppConfig = &config.AppConfig{Host: "127.0.0.1", Port: 0, UploadDir: filepath.Join(root, "uploads")}
	cfg.LogConfig = config.NewDefaultLogConfig()
	cfg.DatasetConfig.Dir = filepath.Join(root, "datasets")
	return cfg
}

func noopRecognizer() ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, string) ([]string, error) {
		return []string{"Cola", "Diet"}, nil
	})
}

func runUntilDone(ctx context.Context, t *testing.T, a *annotator) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAnnotatorCancelWritesOneSnapshot(t *testing.T) {
	cfg := newTestGlobalConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newAnnotator(ctx, cfg, noopRecognizer())
	require.NoError(t, err)
	defer a.Close()

	s := a.controller.CreateSession()
	for _, img := range []string{"/tmp/1.jpg", "/tmp/2.jpg", "/tmp/3.jpg"} {
		a.controller.ProcessImage(ctx, s, img)
		a.controller.SelectSuggestion(s, "Cola")
		require.NoError(t, a.controller.SubmitLabel(ctx, s, nil))
	}

	done := runUntilDone(ctx, t, a)
	cancel()
	waitRun(t, done)

	entries, err := os.ReadDir(cfg.DatasetConfig.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rows, err := service.ReadSnapshot(context.Background(), a.duckDB,
		filepath.Join(cfg.DatasetConfig.Dir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "/tmp/1.jpg", rows[0].ImagePath)
	assert.Equal(t, "/tmp/3.jpg", rows[2].ImagePath)
	assert.Equal(t, "Cola", rows[2].ProductLabel)

	// 再次退出不会重复落盘
	_, err = a.controller.Shutdown(context.Background())
	require.NoError(t, err)
	entries, err = os.ReadDir(cfg.DatasetConfig.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAnnotatorStopsPeriodicFlushBeforeReturning(t *testing.T) {
	cfg := newTestGlobalConfig(t)
	cfg.DatasetConfig.FlushInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newAnnotator(ctx, cfg, noopRecognizer())
	require.NoError(t, err)
	require.NoError(t, a.dataset.AddRow(ctx, "/tmp/a.jpg", "Cola"))

	done := runUntilDone(ctx, t, a)
	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(cfg.DatasetConfig.Dir)
		return err == nil && len(entries) > 0
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	waitRun(t, done)

	// Run 返回后定时落盘已停止，关闭连接是安全的
	require.NoError(t, a.Close())
	size, err := a.dataset.Size(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, size)
}
