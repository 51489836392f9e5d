package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tcg_inventory_v1/pkg/net"
)

// HeaderAuthorizationToken 前端透传的库存接口令牌
const HeaderAuthorizationToken = "x-authorization-token"

// Credentials 将调用方令牌注入 request context，供库存接口客户端使用
// 未携带令牌时不拦截，由客户端回退到配置令牌
func Credentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderAuthorizationToken))
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = strings.TrimSpace(parts[1])
			}
		}

		if token != "" {
			c.Request = c.Request.WithContext(net.WithToken(c.Request.Context(), token))
		}
		c.Next()
	}
}
