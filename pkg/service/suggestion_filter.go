package service

import "product-annotator/pkg/model"

// FilterSuggestions 丢弃长度不超过 minLength 的识别结果，保持原有顺序。
// 长度按 Unicode 码点计算；输入为空时返回空切片而不是 nil
func FilterSuggestions(suggestions []string, minLength int) []string {
	result := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if model.Suggestion(s).Len() > minLength {
			result = append(result, s)
		}
	}
	return result
}
