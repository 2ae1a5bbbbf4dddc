package state

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the rotating file logger for eopod.log: 1 MB per file,
// five backups kept.
func newLogger(path string) *log.Logger {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 5,
	}
	return log.New(writer, "", log.LstdFlags)
}
