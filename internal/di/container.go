package di

import (
	"fmt"

	"kagi-bot/internal/application/port/input"
	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/application/service"
	"kagi-bot/internal/infrastructure/kagi"
	"kagi-bot/internal/infrastructure/logger"
	"kagi-bot/internal/usecase/ask"
)

const pluginName = "kagi-fastgpt"

type Container struct {
	Answers    output.AnswerPort
	Logger     output.LoggerPort
	Commands   input.CommandDispatcher
	AskCommand input.CommandHandler
}

type Config struct {
	Ask ask.Config

	// Endpoint overrides the FastGPT URL; empty means the public endpoint.
	Endpoint string
}

func NewContainer(cfg Config) (*Container, error) {
	log, err := logger.NewLoggerAdapter(pluginName, cfg.Ask.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return NewContainerWithLogger(cfg, log)
}

func NewContainerWithLogger(cfg Config, log output.LoggerPort) (*Container, error) {
	if err := cfg.Ask.Validate(); err != nil {
		return nil, err
	}

	kagiCfg := kagi.DefaultConfig(cfg.Ask.APIKey)
	if cfg.Endpoint != "" {
		kagiCfg.Endpoint = cfg.Endpoint
	}
	if cfg.Ask.DebugMode {
		kagiCfg.Logger = log
	}
	answers := kagi.NewFastGPTAdapter(kagiCfg)

	askCommand := ask.New(answers, log, cfg.Ask)

	commands := service.NewCommandRegistry()
	if err := commands.Register(askCommand); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", askCommand.Declaration(), err)
	}

	return &Container{
		Answers:    answers,
		Logger:     log,
		Commands:   commands,
		AskCommand: askCommand,
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
