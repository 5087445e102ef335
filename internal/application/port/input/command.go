package input

import (
	"context"

	"kagi-bot/internal/domain/entity"
)

// CommandHandler is a chat command a host can register and invoke.
// Execute always yields the reply text; failures are reported in-band.
type CommandHandler interface {
	Declaration() string
	Description() string
	Execute(ctx context.Context, session entity.Session, arg string) string
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, session entity.Session, line string) (string, error)
	Commands() []CommandInfo
}

type CommandInfo struct {
	Name        entity.CommandName `json:"name"`
	Usage       string             `json:"usage"`
	Description string             `json:"description"`
}
