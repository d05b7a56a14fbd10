package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/service"
)

// TemplateHandler 画廊查询接口
type TemplateHandler struct {
	templates *service.TemplateService
	log       *zap.Logger
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(templates *service.TemplateService, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, log: log}
}

// List 分页查询模板
// @Summary 模板列表
// @Tags 模板
// @Produce json
// @Param page query int false "页码，默认 1"
// @Param limit query int false "每页数量，默认 12，最大 50"
// @Param search query string false "搜索主题和摘要"
// @Param brand query string false "品牌"
// @Param language query string false "语言"
// @Param country query string false "国家"
// @Success 200 {object} domain.TemplateList
// @Failure 500 {object} ErrorResponse
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	query := domain.TemplateQuery{
		Page:     domain.ParseIntOr(c.Query("page"), 1),
		Limit:    domain.ParseIntOr(c.Query("limit"), domain.DefaultTemplatePageSize),
		Search:   c.Query("search"),
		Brand:    c.Query("brand"),
		Language: c.Query("language"),
		Country:  c.Query("country"),
	}

	list, err := h.templates.List(c.Request.Context(), query)
	if err != nil {
		h.log.Error("failed to list templates", zap.Error(err))
		InternalError(c, MsgTemplatesFailed)
		return
	}
	OK(c, list)
}

// Filters 返回可筛选的取值
// @Summary 筛选项
// @Tags 模板
// @Produce json
// @Success 200 {object} domain.FilterOptions
// @Failure 500 {object} ErrorResponse
// @Router /templates/filters [get]
func (h *TemplateHandler) Filters(c *gin.Context) {
	filters, err := h.templates.Filters(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load filters", zap.Error(err))
		InternalError(c, MsgFiltersFailed)
		return
	}
	OK(c, filters)
}

// Get 返回完整邮件
// @Summary 模板详情
// @Tags 模板
// @Produce json
// @Param id path int true "邮件 ID"
// @Success 200 {object} domain.Email
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, MsgInvalidTemplateID)
		return
	}

	email, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		status, msg, known := mapError(err, MsgTemplateFailed)
		if !known {
			h.log.Error("failed to fetch template", zap.Int64("id", id), zap.Error(err))
		}
		Error(c, status, msg)
		return
	}
	OK(c, email)
}
