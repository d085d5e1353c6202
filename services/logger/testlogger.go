package logsvc

import (
	"log"

	"github.com/trezcool/tathmini/core"
)

// TestLogger prints to the standard logger and never exits the process.
type TestLogger struct{}

var _ core.Logger = (*TestLogger)(nil)

func NewTestLogger() *TestLogger { return &TestLogger{} }

func (l TestLogger) Enable(bool) {}

func (l TestLogger) print(level, msg string, args []interface{}) {
	log.Printf("%s: %s", level, msg)
	for _, arg := range args {
		log.Printf("%+v", arg)
	}
}

func (l TestLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l TestLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l TestLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l TestLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
func (l TestLogger) Fatal(msg string, args ...interface{}) { l.print("FATAL", msg, args) }
