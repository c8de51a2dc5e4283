// Package middleware 提供 HTTP 中间件
package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"content-factory-ai/internal/config"
)

// corsBaseHeaders 前端调用接口必需的请求头，无论配置如何都会放行
var corsBaseHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader, UserIDHeader}

// CORS 跨域中间件。导出下载依赖 Content-Disposition，需要暴露给浏览器
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	headers := slices.Clone(corsBaseHeaders)
	for _, h := range cfg.AllowedHeaders {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  methods,
		AllowHeaders:  headers,
		ExposeHeaders: []string{RequestIDHeader, "X-Trace-ID", "Content-Disposition"},
		// 通配来源不能携带凭据
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           12 * time.Hour,
	})
}
