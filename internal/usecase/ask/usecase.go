package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kagi-bot/internal/application/port/input"
	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/domain/entity"
)

var _ input.CommandHandler = (*UseCase)(nil)

const (
	Declaration = "kagi.ask <question:text>"
	Description = "🤖 向 FastGPT 提问"

	ReplyNoAnswer = "❌ 无法获取有效回答"
	ReplyFailed   = "❌ 发生错误，无法获取回答"
)

type UseCase struct {
	answers output.AnswerPort
	logger  output.LoggerPort
	config  Config
}

func New(answers output.AnswerPort, logger output.LoggerPort, config Config) *UseCase {
	if config.DebugMode {
		logger.Info("🚀 Plugin loaded, debug mode enabled")
	}

	return &UseCase{
		answers: answers,
		logger:  logger,
		config:  config,
	}
}

func (uc *UseCase) Declaration() string { return Declaration }
func (uc *UseCase) Description() string { return Description }

func (uc *UseCase) Execute(ctx context.Context, session entity.Session, question string) string {
	if uc.config.DebugMode {
		uc.logger.Info("📥 Question received", "question", question, "user", session.Username)
	}

	resp, err := uc.answers.Ask(ctx, question)
	if err != nil {
		uc.logFailure(err)
		return ReplyFailed
	}

	if uc.config.DebugMode && resp != nil && resp.Meta != nil {
		uc.logger.Info("🔍 FastGPT response",
			"id", resp.Meta.ID,
			"api_balance", resp.Meta.APIBalance,
			"response", resp.RawString(),
		)
	}

	if !resp.HasOutput() {
		if uc.config.DebugMode {
			uc.logger.Warn("⚠️ No usable answer in response", "response", resp.RawString())
		}
		return ReplyNoAnswer
	}

	reply := FormatReply(session.Username, question, resp.Data.Output.Text(), resp.Data.References)
	uc.logger.Info("📤 Reply", "reply", reply)

	return reply
}

func (uc *UseCase) logFailure(err error) {
	uc.logger.Error("🚨 Request failed", "error", err.Error())

	if !uc.config.DebugMode {
		return
	}

	var respErr output.ResponseError
	if errors.As(err, &respErr) {
		if body := respErr.ResponseBody(); body != "" {
			uc.logger.Error("🚨 Error response body", "body", body)
		}
	}
}

// FormatReply renders an answer the way it is posted back to chat.
func FormatReply(username, question, answer string, references []entity.Reference) string {
	var b strings.Builder

	fmt.Fprintf(&b, "@%s \n\n🧐 您提问的问题: %s\n\n💬 回答:\n%s", username, question, answer)

	if len(references) > 0 {
		b.WriteString("\n\n📚 参考资料:\n")
		for i, ref := range references {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, ref.Title, ref.URL)
		}
	}

	return b.String()
}
