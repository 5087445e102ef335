package entity

type CommandName string

func (c CommandName) String() string {
	return string(c)
}

const CommandKagiAsk CommandName = "kagi.ask"

type ArgKind string

const (
	ArgKindText   ArgKind = "text"
	ArgKindString ArgKind = "string"
)

// CommandSpec is a parsed declaration such as "kagi.ask <question:text>".
type CommandSpec struct {
	Name     CommandName
	ArgName  string
	ArgKind  ArgKind
	Required bool
}

func (s CommandSpec) HasArg() bool {
	return s.ArgName != ""
}
