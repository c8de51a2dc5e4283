// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/interfaces/http/dto"
	"content-factory-ai/internal/interfaces/http/middleware"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	svc *project.Service
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(svc *project.Service) *ChapterHandler {
	return &ChapterHandler{svc: svc}
}

// ListChapters 获取章节列表，按序号升序
// @Summary 获取章节列表
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/projects/{pid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	chapters, err := h.svc.ListChapters(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterListResponse(chapters))
}

// AddChapter 在大纲末尾追加章节
// @Summary 追加章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.AddChapterRequest true "章节信息"
// @Success 201 {object} dto.Response[dto.ChapterResponse]
// @Router /v1/projects/{pid}/chapters [post]
func (h *ChapterHandler) AddChapter(c *gin.Context) {
	var req dto.AddChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chapter, err := h.svc.AddChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Created(c, dto.ToChapterResponse(chapter))
}

// GetChapter 获取章节详情
// @Summary 获取章节详情
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	chapter, err := h.svc.GetChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}

// RegenerateChapter 重新执行单章写作与后续阶段，插图历史保留
// @Summary 重新生成章节
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid}/regenerate [post]
func (h *ChapterHandler) RegenerateChapter(c *gin.Context) {
	chapter, err := h.svc.RegenerateChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}
