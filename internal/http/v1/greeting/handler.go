package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
	greetingsvc "github.com/janisto/greeting-service/internal/service/greeting"
)

// Register registers greeting endpoints.
func Register(api huma.API, svc greetingsvc.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/greeting",
		Summary:     "Get a greeting",
		Description: "Returns a greeting for the given name, or for World when none is given. Every call takes the next id.",
		Tags:        []string{"Greeting"},
	}, func(ctx context.Context, input *GetInput) (*GetOutput, error) {
		g, err := svc.Greet(ctx, input.Name)
		if err != nil {
			applog.LogError(ctx, "greeting failed", err, zap.String("name", input.Name))
			return nil, huma.Error500InternalServerError("failed to create greeting")
		}
		return &GetOutput{Body: Data{ID: g.ID, Content: g.Content}}, nil
	})
}
