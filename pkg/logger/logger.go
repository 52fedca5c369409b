package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	Setup(os.Getenv("ENVIRONMENT"))
}

// Setup rebuilds the package logger for the given environment.
// Development gets a console writer and debug level, everything else JSON at info.
func Setup(environment string) {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	base = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	base = base.Output(w)
}

func Get() *zerolog.Logger {
	return &base
}

func Info(format string, v ...interface{}) {
	base.Info().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	base.Error().Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	base.Debug().Msg(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	base.Warn().Msg(fmt.Sprintf(format, v...))
}
