// Package logx configures the process-wide zerolog logger the agent
// logs through.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Debug lowers the level from info to debug.
	Debug bool `split_words:"true" default:"false"`
	// PrettyFormat switches from JSON lines to the console writer,
	// meant for local runs only.
	PrettyFormat bool `split_words:"true" default:"false"`
}

// Init replaces the global logger. Without arguments it logs JSON at
// info level to stdout.
func Init(opts ...Config) {
	var conf Config
	if len(opts) > 0 {
		conf = opts[0]
	}

	out := io.Writer(os.Stdout)
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter()
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Stack().
		Logger()
}
