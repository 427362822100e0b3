package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/greeting-service/internal/http/v1/greeting"
	greetingsvc "github.com/janisto/greeting-service/internal/service/greeting"
)

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, greetingService greetingsvc.Service) {
	greeting.Register(api, greetingService)
}
