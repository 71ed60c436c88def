package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const archiveLayout = "2006-01-02"

// archiveName 返回 annotator.log 在某一天的归档名 annotator.2006-01-02.log
func archiveName(path string, day time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + day.Format(archiveLayout) + ext
}

// rotateStale 启动时把最后写入不在今天的日志文件改名归档，今天的日志继续追加
func rotateStale(path string, now time.Time) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "读取日志文件信息失败: %s", path)
	}
	modified := info.ModTime()
	if modified.Format(archiveLayout) == now.Format(archiveLayout) {
		return nil
	}
	if err := os.Rename(path, archiveName(path, modified)); err != nil {
		return errors.Wrapf(err, "归档日志文件失败: %s", path)
	}
	return nil
}

// purgeExpired 删除修改时间早于保留期的归档日志，返回删除的文件
func purgeExpired(path string, retention time.Duration, now time.Time) ([]string, error) {
	ext := filepath.Ext(path)
	pattern := strings.TrimSuffix(path, ext) + ".*" + ext
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "匹配归档日志失败: %s", pattern)
	}
	cutoff := now.Add(-retention)
	removed := make([]string, 0)
	for _, m := range matches {
		if m == path {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(m, strings.TrimSuffix(path, ext)+"."), ext)
		if _, err := time.Parse(archiveLayout, stamp); err != nil {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, errors.Wrapf(err, "删除过期日志失败: %s", m)
		}
		removed = append(removed, m)
	}
	return removed, nil
}
