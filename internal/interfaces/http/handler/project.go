// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/interfaces/http/dto"
	"content-factory-ai/internal/interfaces/http/middleware"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *project.Service
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *project.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// ListProjects 获取项目列表
// @Summary 获取当前用户的项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindPage(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToProjectListResponse(result.Items), dto.PageMetaOf(result))
}

// CreateProject 创建项目
// @Summary 创建项目并按大纲创建章节
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), middleware.GetUserIDFromGin(c), req.ToInput())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Created(c, dto.ToProjectResponse(p))
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(p))
}

// DeleteProject 删除项目及其章节和调用流水
// @Summary 删除项目
// @Tags Projects
// @Param pid path string true "项目 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c)); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.NoContent(c)
}

// RunProject 同步处理全部待处理章节
// @Summary 运行项目
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/run [post]
func (h *ProjectHandler) RunProject(c *gin.Context) {
	result, err := h.svc.RunPending(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToRunResponse(result))
}

// PauseProject 暂停项目
// @Router /v1/projects/{pid}/pause [post]
func (h *ProjectHandler) PauseProject(c *gin.Context) {
	h.lifecycle(c, h.svc.Pause)
}

// ResumeProject 恢复项目，不会自动开始运行
// @Router /v1/projects/{pid}/resume [post]
func (h *ProjectHandler) ResumeProject(c *gin.Context) {
	h.lifecycle(c, h.svc.Resume)
}

// CancelProject 取消项目
// @Router /v1/projects/{pid}/cancel [post]
func (h *ProjectHandler) CancelProject(c *gin.Context) {
	h.lifecycle(c, h.svc.Cancel)
}

// lifecycle 执行状态迁移并返回最新项目
func (h *ProjectHandler) lifecycle(c *gin.Context, op func(context.Context, string, string) (*entity.Project, error)) {
	p, err := op(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(p))
}

// GetAnalytics 章节统计、用量汇总与最近调用流水
// @Summary 项目统计
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[project.Analytics]
// @Router /v1/projects/{pid}/analytics [get]
func (h *ProjectHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.svc.Analytics(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, analytics)
}

// ExportProject 导出 Markdown；publish=true 时上传对象存储并返回地址
// @Summary 导出项目
// @Tags Projects
// @Produce text/markdown
// @Param pid path string true "项目 ID"
// @Param publish query bool false "是否发布到对象存储"
// @Success 200 {file} file
// @Router /v1/projects/{pid}/export [get]
func (h *ProjectHandler) ExportProject(c *gin.Context) {
	publish := dto.BindBool(c, "publish")
	res, err := h.svc.Export(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c), publish)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	if publish {
		dto.Success(c, &dto.ExportResponse{Filename: res.Filename, URL: res.URL})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Content)
}
