package greeting

// GetInput carries the optional name to greet.
type GetInput struct {
	Name string `query:"name" default:"World" doc:"Name to greet" example:"User"`
}
