package model

// DatasetRow 表示数据集中的一条标注：图片路径与最终标签
type DatasetRow struct {
	ImagePath    string `json:"image_path"`    // 图片路径
	ProductLabel string `json:"product_label"` // 商品标签，允许为空
}

// TableName 指定 DuckDB 中的表名
func (DatasetRow) TableName() string {
	return "dataset"
}
