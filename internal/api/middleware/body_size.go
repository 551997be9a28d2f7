package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-importer/internal/pkg/common"
)

// 逐字稿路由的放寬倍數：一小時影片的逐字稿遠大於一般 JSON 請求
const transcriptSizeFactor = 8

// BodySizeLimit 限制請求體大小的中間件
// 逐字稿提交路由放寬到 transcriptSizeFactor 倍，其餘路由用基本上限
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxSize
		if strings.HasSuffix(c.Request.URL.Path, "/manual") {
			limit = maxSize * transcriptSizeFactor
		}

		// 檢查 Content-Length
		if c.Request.ContentLength > limit {
			common.LogError("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", limit),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":    "Request body too large",
				"max_size": limit,
			})
			return
		}

		// 設置請求體大小限制
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		c.Next()
	}
}
