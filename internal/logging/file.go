package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileWriter returns a size-rotated log file writer. Old files are
// compressed and at most three of them are kept.
func NewFileWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}
