package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"kagi-bot/internal/application/port/input"
	"kagi-bot/internal/domain/entity"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing required argument")
	ErrBadDeclaration  = errors.New("invalid command declaration")
)

var _ input.CommandDispatcher = (*CommandRegistryImpl)(nil)

type registeredCommand struct {
	spec    entity.CommandSpec
	handler input.CommandHandler
}

type CommandRegistryImpl struct {
	commands map[entity.CommandName]registeredCommand
}

func NewCommandRegistry() *CommandRegistryImpl {
	return &CommandRegistryImpl{
		commands: make(map[entity.CommandName]registeredCommand),
	}
}

func (r *CommandRegistryImpl) Register(handler input.CommandHandler) error {
	spec, err := ParseDeclaration(handler.Declaration())
	if err != nil {
		return err
	}
	if _, exists := r.commands[spec.Name]; exists {
		return fmt.Errorf("command %q already registered", spec.Name)
	}

	r.commands[spec.Name] = registeredCommand{spec: spec, handler: handler}
	return nil
}

func (r *CommandRegistryImpl) Get(name entity.CommandName) (input.CommandHandler, bool) {
	cmd, ok := r.commands[name]
	return cmd.handler, ok
}

func (r *CommandRegistryImpl) Commands() []input.CommandInfo {
	result := make([]input.CommandInfo, 0, len(r.commands))
	for _, cmd := range r.commands {
		result = append(result, input.CommandInfo{
			Name:        cmd.spec.Name,
			Usage:       cmd.handler.Declaration(),
			Description: cmd.handler.Description(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Dispatch runs the command named by the first word of line. For a text
// argument the rest of the line is passed through as-is after trimming.
func (r *CommandRegistryImpl) Dispatch(ctx context.Context, session entity.Session, line string) (string, error) {
	name, rest := splitCommandLine(line)
	if name == "" {
		return "", ErrUnknownCommand
	}

	cmd, ok := r.commands[entity.CommandName(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	arg := rest
	if cmd.spec.ArgKind == entity.ArgKindString {
		arg, _, _ = strings.Cut(rest, " ")
	}
	if !cmd.spec.HasArg() {
		arg = ""
	}

	if cmd.spec.Required && arg == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, cmd.spec.ArgName)
	}

	return cmd.handler.Execute(ctx, session, arg), nil
}

func splitCommandLine(line string) (string, string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, isSpace)
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// ParseDeclaration parses "name", "name <arg:kind>" or "name [arg:kind]".
// Angle brackets mark the argument as required.
func ParseDeclaration(decl string) (entity.CommandSpec, error) {
	fields := strings.Fields(decl)
	if len(fields) == 0 || len(fields) > 2 {
		return entity.CommandSpec{}, fmt.Errorf("%w: %q", ErrBadDeclaration, decl)
	}

	spec := entity.CommandSpec{Name: entity.CommandName(fields[0])}
	if len(fields) == 1 {
		return spec, nil
	}

	arg := fields[1]
	switch {
	case strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">"):
		spec.Required = true
	case strings.HasPrefix(arg, "[") && strings.HasSuffix(arg, "]"):
	default:
		return entity.CommandSpec{}, fmt.Errorf("%w: %q", ErrBadDeclaration, decl)
	}

	name, kind, found := strings.Cut(arg[1:len(arg)-1], ":")
	if name == "" {
		return entity.CommandSpec{}, fmt.Errorf("%w: %q", ErrBadDeclaration, decl)
	}
	spec.ArgName = name
	spec.ArgKind = entity.ArgKindString
	if found {
		switch entity.ArgKind(kind) {
		case entity.ArgKindText, entity.ArgKindString:
			spec.ArgKind = entity.ArgKind(kind)
		default:
			return entity.CommandSpec{}, fmt.Errorf("%w: unsupported type %q", ErrBadDeclaration, kind)
		}
	}

	return spec, nil
}
