// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// TxKey 事务上下文键，值为存储实现自己的事务句柄（*gorm.DB 或内存 Store）
type TxKey struct{}

// Transactor 事务管理接口，项目与章节的批量写入走同一事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// 分页边界
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination 分页参数，页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 创建分页参数，越界值收敛到合法区间
func NewPagination(page, pageSize int) Pagination {
	page = max(page, 1)
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Offset 计算偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 获取限制数量
func (p Pagination) Limit() int {
	return p.PageSize
}

// Window 返回长度为 n 的已排序切片中当前页的 [start, end)
func (p Pagination) Window(n int) (start, end int) {
	start = min(p.Offset(), n)
	end = min(start+p.Limit(), n)
	return start, end
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 创建分页结果，Items 永不为 nil
func NewPagedResult[T any](items []T, total int64, pagination Pagination) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	res := &PagedResult[T]{
		Items:    items,
		Total:    total,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	}
	if size := int64(pagination.PageSize); size > 0 {
		res.TotalPages = int((total + size - 1) / size)
	}
	return res
}
