package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SwaggerConfig gates the API documentation endpoint
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // single IPs or CIDRs; empty allows every client
}

// SwaggerProtection answers 404 while documentation is disabled and 403 to
// clients outside AllowedIPs. Entries that parse as neither IP nor CIDR are
// ignored.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	allow := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(
				dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c)))
			return
		}
		if len(cfg.AllowedIPs) > 0 && !allow.contains(net.ParseIP(c.ClientIP())) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

type allowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowList(entries []string) allowList {
	var l allowList
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			if _, n, err := net.ParseCIDR(e); err == nil {
				l.nets = append(l.nets, n)
			}
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			l.ips = append(l.ips, ip)
		}
	}
	return l
}

func (l allowList) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, n := range l.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
