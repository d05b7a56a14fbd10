package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/service"
)

// ImportHandler 处理 Gmail 导入
type ImportHandler struct {
	importer *service.ImportService
	log      *zap.Logger
}

// NewImportHandler 创建导入处理器
func NewImportHandler(importer *service.ImportService, log *zap.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

// Import 导入用户最近的 Gmail 邮件
// @Summary 导入邮件
// @Description 拉取最近的邮件并分类入库，已导入的邮件会被跳过
// @Tags 导入
// @Produce json
// @Param user_email query string true "用户邮箱"
// @Param max query int false "数量上限 1-50，默认 50"
// @Success 200 {object} domain.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /messages/import [get]
func (h *ImportHandler) Import(c *gin.Context) {
	userEmail := c.Query("user_email")
	if userEmail == "" {
		BadRequest(c, MsgMissingUserEmail)
		return
	}

	result, err := h.importer.Import(c.Request.Context(), service.ImportInput{
		UserEmail: userEmail,
		Max:       domain.ClampImportMax(c.Query("max")),
	})
	if err != nil {
		status, msg, known := mapError(err, MsgImportFailed)
		if !known {
			h.log.Error("gmail import failed", zap.String("user_email", userEmail), zap.Error(err))
		}
		Error(c, status, msg)
		return
	}

	OK(c, result)
}
