package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"epay-gateway/pkg/logger"
)

func main() {
	// ========================================
	// SET GIN MODE
	// ========================================
	// APP_ENV=production tắt debug output của gin
	env := getEnv("APP_ENV", "development")
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Init(env)
	logger.Info("🌍 Starting epay gateway API", map[string]interface{}{"environment": env})

	Serve()
}

// getEnv lấy environment variable với fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
