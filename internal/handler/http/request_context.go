package http

import (
	"github.com/gin-gonic/gin"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/utils/netaddr"
)

// requestContext extracts the client signals the trust components need from
// the request. The origin address is normalized once here; nothing downstream
// sees raw proxy-mangled addresses.
func requestContext(c *gin.Context) models.RequestContext {
	return models.RequestContext{
		IPAddress:  netaddr.Normalize(c.ClientIP()),
		UserAgent:  c.GetHeader("User-Agent"),
		DeviceID:   c.GetHeader("X-Device-ID"),
		HTTPMethod: c.Request.Method,
		Endpoint:   c.Request.URL.Path,
	}
}
