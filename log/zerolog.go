// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog is a zerolog backed logger that satisfies the Logger interface
type Zerolog struct {
	level Level
	log   zerolog.Logger
}

// NewZerolog returns a new Zerolog type that satisfies the Logger interface. If console is
// true, human-readable output is written instead of JSON.
func NewZerolog(output io.Writer, level Level, console bool) *Zerolog {
	if console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}
	return &Zerolog{
		level: level,
		log:   zerolog.New(output).Level(zerologLevel(level)).With().Timestamp().Logger(),
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.DebugLevel
	}
}

func (l *Zerolog) emit(event *zerolog.Event, log Log) {
	event.Dict(DirString, zerolog.Dict().
		Str(DirFromString, log.directionFrom()).
		Str(DirToString, log.directionTo()),
	).Msg(fmt.Sprintf(log.Format, log.Messages...))
}

// Debugf logs a debug message via zerolog
func (l *Zerolog) Debugf(log Log) {
	if l.level >= LevelDebug {
		l.emit(l.log.Debug(), log)
	}
}

// Infof logs an info message via zerolog
func (l *Zerolog) Infof(log Log) {
	if l.level >= LevelInfo {
		l.emit(l.log.Info(), log)
	}
}

// Warnf logs a warn message via zerolog
func (l *Zerolog) Warnf(log Log) {
	if l.level >= LevelWarn {
		l.emit(l.log.Warn(), log)
	}
}

// Errorf logs an error message via zerolog
func (l *Zerolog) Errorf(log Log) {
	if l.level >= LevelError {
		l.emit(l.log.Error(), log)
	}
}
