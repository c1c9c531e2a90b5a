package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/pkg/logger"
	"routinedash/pkg/rbac"
	"routinedash/pkg/util"
)

// gin context keys set by the auth middleware
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// getUserID 统一读取 token 中的 user_id
func getUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	userID, ok := v.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return userID, true
}

// checkPayloadUser payload 里的 user_id 可以省略，出现时必须与 token 一致
func checkPayloadUser(c *gin.Context, tokenUserID, payloadUserID string) bool {
	if err := rbac.ValidateUserIDInPayload(tokenUserID, payloadUserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// StatusFor maps an error to the HTTP status returned to the UI.
func StatusFor(err error) int {
	switch util.ClassifyError(err) {
	case util.KindValidation:
		return http.StatusBadRequest
	case util.KindNotFound:
		return http.StatusNotFound
	case util.KindClient:
		var sc util.StatusCoder
		if errors.As(err, &sc) {
			return sc.StatusCode()
		}
		return http.StatusBadRequest
	case util.KindCircuitOpen:
		return http.StatusServiceUnavailable
	case util.KindTimeout:
		return http.StatusGatewayTimeout
	case util.KindNetwork, util.KindServer, util.KindDecode:
		return http.StatusBadGateway
	case util.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError 记录日志并返回 {"error": ..., "kind": ...}
func respondError(c *gin.Context, log *zap.Logger, msg string, err error) {
	status := StatusFor(err)
	kind := util.ClassifyError(err)
	l := logger.WithTrace(c.Request.Context(), log)
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("error_kind", kind),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		l.Error(msg, fields...)
	} else {
		l.Warn(msg, fields...)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
