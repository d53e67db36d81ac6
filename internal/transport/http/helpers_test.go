package http

import "github.com/rs/zerolog"

var nopLogger = zerolog.Nop()

func testLogger() *zerolog.Logger {
	return &nopLogger
}
