package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// devOrigins are the frontend hosts allowed to call the API during local
// development.
var devOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
}

// CORS admits the dev frontend origins with credentials. The trace headers
// are exposed so browser clients can surface the ids echoed by
// AttachTraceContext.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     devOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", headerTraceID, headerRequestID},
		ExposeHeaders:    []string{headerTraceID, headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
