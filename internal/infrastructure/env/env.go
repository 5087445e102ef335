package env

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"kagi-bot/internal/application/port/output"
)

var _ output.ConfigPort = (*EnvService)(nil)

const (
	KeyAPIKey      = "KAGI_API_KEY"
	KeyDebugMode   = "KAGI_DEBUG_MODE"
	KeyHostMode    = "HOST_MODE"
	KeyHTTPAddr    = "HTTP_ADDR"
	KeyConsoleUser = "CONSOLE_USER"
)

type EnvService struct{}

// NewEnvService loads .env and then .env.<APP_ENV> on top of it. Variables
// already set in the process environment win over .env but not over the
// APP_ENV overlay.
func NewEnvService() *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Info: no .env file with secrets found (this is OK for CI/CD)")
	}

	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err != nil {
		log.Printf("Info: no %s overlay loaded: %v", envFile, err)
	}

	log.Printf("Environment loaded: APP_ENV=%s", appEnv)

	return &EnvService{}
}

func (e *EnvService) Get(key string) string {
	return os.Getenv(key)
}

func (e *EnvService) MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("ENV %s is missing", key)
	}
	return val
}

func (e *EnvService) GetWithDefault(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetBool falls back to defaultValue when key is unset or not a boolean. A
// malformed value is reported so a typo in KAGI_DEBUG_MODE does not go
// unnoticed.
func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("Warning: ENV %s=%q is not a boolean, using %t", key, val, defaultValue)
		return defaultValue
	}
	return parsed
}
