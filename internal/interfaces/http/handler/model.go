package handler

import (
	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/interfaces/http/dto"
)

// ModelCatalogResponse 可选模型目录
type ModelCatalogResponse struct {
	Default string             `json:"default"`
	Models  []agentmodel.Model `json:"models"`
}

// ListModels 返回可供各角色选择的模型及价格
// @Summary 模型目录
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[ModelCatalogResponse]
// @Router /v1/models [get]
func ListModels(c *gin.Context) {
	dto.Success(c, &ModelCatalogResponse{
		Default: agentmodel.Default,
		Models:  agentmodel.Catalog(),
	})
}
