package action

import (
	"context"

	"github.com/seerai/krampus-auth/observe"
)

// commandLogger adapts Commands to observe.Logger. Only the message is
// written; structured fields are dropped because workflow commands carry a
// single line of text.
type commandLogger struct {
	cmds *Commands
}

// NewCommandLogger returns an observe.Logger that writes workflow commands.
func NewCommandLogger(cmds *Commands) observe.Logger {
	return commandLogger{cmds: cmds}
}

func (l commandLogger) Debug(_ context.Context, msg string, _ ...observe.Field) {
	l.cmds.Debug(msg)
}

func (l commandLogger) Info(_ context.Context, msg string, _ ...observe.Field) {
	l.cmds.Info(msg)
}

func (l commandLogger) Warn(_ context.Context, msg string, _ ...observe.Field) {
	l.cmds.Warning(msg)
}

func (l commandLogger) Error(_ context.Context, msg string, _ ...observe.Field) {
	l.cmds.Error(msg)
}

func (l commandLogger) With(...observe.Field) observe.Logger {
	return l
}
