package output

import (
	"context"

	"kagi-bot/internal/domain/entity"
)

type AnswerPort interface {
	Ask(ctx context.Context, query string) (*entity.AnswerResponse, error)
}

// ResponseError is implemented by Ask errors that carry the upstream body.
type ResponseError interface {
	error
	ResponseBody() string
}
