// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/interfaces/http/dto"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
	"content-factory-ai/pkg/utils"
)

// UserIDHeader 未启用认证时携带用户标识的请求头
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// AuthConfig 认证配置
type AuthConfig struct {
	// Enabled 为 true 时要求 Bearer JWT，否则信任 X-User-ID 或回退到 DemoUserID
	Enabled bool
	Secret  string
	Issuer  string
	// DemoUserID 未携带身份时使用的用户，为空则拒绝
	DemoUserID string
}

// Auth 解析请求用户并注入 Context
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		var userID string
		if cfg.Enabled {
			token, ok := bearerToken(c.GetHeader("Authorization"))
			if !ok {
				abortUnauthorized(c, apperrors.CodeTokenMissing, "missing or malformed authorization header")
				return
			}
			claims, err := jwtManager.ParseToken(token)
			if err != nil {
				if errors.Is(err, utils.ErrExpiredToken) {
					abortUnauthorized(c, apperrors.CodeTokenExpired, "token expired")
				} else {
					abortUnauthorized(c, apperrors.CodeTokenInvalid, "invalid token")
				}
				return
			}
			userID = claims.UserID
		} else {
			userID = strings.TrimSpace(c.GetHeader(UserIDHeader))
			if userID == "" {
				userID = cfg.DemoUserID
			}
		}

		if userID == "" {
			abortUnauthorized(c, apperrors.CodeUnauthorized, "user identity required")
			return
		}

		c.Set(userIDKey, userID)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserIDFromGin 读取 Auth 注入的用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, code apperrors.ErrorCode, msg string) {
	dto.Abort(c, http.StatusUnauthorized, code, msg)
}
