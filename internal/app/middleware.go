package app

import (
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/auth"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/middleware"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, tokens *auth.Tokens) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, tokens),
	}
}
