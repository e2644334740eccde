package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// codeInternal — код ошибки без AppError в цепочке.
const codeInternal = "INTERNAL.UNEXPECTED"

// ErrorResponse — тело ответа при ошибке.
type ErrorResponse struct {
	Error      bool   `json:"error"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// StatusFor отображает категорию ошибки в HTTP статус:
// VALIDATION — 400, STORAGE — 503, остальное — 500.
func StatusFor(err error) int {
	switch apperrors.Category(err) {
	case apperrors.CategoryValidation:
		return http.StatusBadRequest
	case apperrors.CategoryStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет тело ошибки и логирует сбои уровня сервера.
func (s *Server) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	code := apperrors.Code(err)
	msg := apperrors.Message(err)
	if code == "" {
		code = codeInternal
		msg = "внутренняя ошибка сервера"
	}

	log := tracing.Logger(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.Error("запрос завершился ошибкой",
			"path", c.FullPath(),
			"code", code,
			"error", err.Error(),
		)
	} else {
		log.Debug("запрос отклонён", "path", c.FullPath(), "code", code, "message", msg)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:      true,
		Code:       code,
		Message:    msg,
		StatusCode: status,
	})
}
