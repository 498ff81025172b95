package core

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior message in a conversation sent to the model.
type Turn struct {
	Role string
	Text string
}

type Image struct {
	MIMEType string // e.g. "image/jpeg"
	Data     []byte
}

type GenerateRequest struct {
	System  string
	History []Turn
	Prompt  string
	Image   *Image
	// JSON asks the model for an application/json response body.
	JSON bool
}

// Generator is the external generative model.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}
