package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/domain/repository"
)

// PageRequest 分页查询参数
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// BindPage 绑定分页参数，缺省或非法值按默认分页处理
func BindPage(c *gin.Context) repository.Pagination {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return repository.NewPagination(1, repository.DefaultPageSize)
	}
	return repository.NewPagination(req.Page, req.PageSize)
}

// BindBool 解析布尔查询参数，缺省或非法时为 false
func BindBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// BindProjectID 项目路径参数
func BindProjectID(c *gin.Context) string {
	return c.Param("pid")
}

// BindChapterID 章节路径参数
func BindChapterID(c *gin.Context) string {
	return c.Param("cid")
}
