package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// AllowedOrigins splits the comma-separated ALLOWED_ORIGINS value.
func AllowedOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// CORSMiddleware adds the required headers to allow cross-origin requests
func CORSMiddleware(allowedOrigins string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	origins := AllowedOrigins(allowedOrigins)
	if len(origins) == 1 && origins[0] == "*" {
		// A literal wildcard cannot be combined with credentials.
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowWildcard = true
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowWebSockets = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders,
		"Accept",
		"Authorization",
		"Accept-Encoding",
		"X-Requested-With",
	)

	return cors.New(corsConfig)
}
