package model

import "unicode/utf8"

// Suggestion 是 OCR 识别出的一个候选文本片段
type Suggestion string

// Len 返回字符数（按 Unicode 码点计算）
func (s Suggestion) Len() int {
	return utf8.RuneCountInString(string(s))
}

// SessionView 是会话当前状态的快照，返回给界面
type SessionView struct {
	ID          string   `json:"id"`
	ImagePath   string   `json:"imagePath"`
	Suggestions []string `json:"suggestions"`
	Label       string   `json:"label"`
}
