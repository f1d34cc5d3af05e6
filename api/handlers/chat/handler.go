package chat

import (
	"net/http"
	"strings"

	response "openrag/api/handlers/common"
	"openrag/internal/logger"
	"openrag/internal/rag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 文档问答接口
type Handler struct {
	query *rag.QueryService
}

// NewHandler 构造函数
func NewHandler(query *rag.QueryService) *Handler {
	return &Handler{query: query}
}

type askDTO struct {
	Question string `json:"question" binding:"required"`
}

// Ask 基于已索引文档回答问题
// @Summary 文档问答
// @Description 检索相关片段并生成带引用的回答
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body askDTO true "问题"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/chat [post]
func (h *Handler) Ask(c *gin.Context) {
	var dto askDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}
	question := strings.TrimSpace(dto.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "question 不能为空"})
		return
	}

	result, err := h.query.Answer(c.Request.Context(), question)
	if err != nil {
		logger.Error("问答失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: result})
}
