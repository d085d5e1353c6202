package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/user"
)

// RollbarLogger reports to Rollbar and echoes every entry to the standard
// logger. A user.User passed among the args is attached to the Rollbar item
// as the person instead of being logged.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// send pulls the first user.User out of args (if any) to set the Rollbar
// person, forwards the rest through the given level func and echoes locally.
func (l *RollbarLogger) send(level func(...interface{}), msg string, args []interface{}) {
	rollbar.ClearPerson()
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)

	var personSet bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			items = append(items, arg)
			continue
		}
		if !personSet {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			personSet = true
		}
	}
	level(items...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.send(rollbar.Debug, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.send(rollbar.Info, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.send(rollbar.Warning, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.send(rollbar.Error, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.send(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}
