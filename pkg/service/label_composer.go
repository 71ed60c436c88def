package service

import (
	"strings"
	"sync"
)

// LabelComposer 按选择顺序累积标签片段，允许重复选择同一片段
type LabelComposer struct {
	mu        sync.Mutex
	fragments []string
}

func NewLabelComposer() *LabelComposer {
	return &LabelComposer{}
}

// Append 追加片段并返回以单个空格拼接的完整标签
func (l *LabelComposer) Append(selected ...string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragments = append(l.fragments, selected...)
	return strings.Join(l.fragments, " ")
}

// Label 返回当前标签
func (l *LabelComposer) Label() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.fragments, " ")
}

// Fragments 返回已选片段的副本
func (l *LabelComposer) Fragments() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.fragments))
	copy(out, l.fragments)
	return out
}

func (l *LabelComposer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragments = nil
}
