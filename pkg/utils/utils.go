// Package utils 提供分页等通用工具
package utils

// Pagination 分页信息
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// NewPagination 创建分页信息，page 从 1 开始，pageSize 限制在 [1, 100]
func NewPagination(page, pageSize int, total int64) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)

	return &Pagination{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
	}
}

// Offset 获取数据库查询偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 获取数据库查询限制
func (p *Pagination) Limit() int {
	return p.PageSize
}
