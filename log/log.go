// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package log implements a logger interface that can be used within the go-securemail packages
package log

import (
	"fmt"
	"strings"
)

const (
	DirServerToClient Direction = iota // Server to Client communication
	DirClientToServer                  // Client to Server communication
	DirInternal                        // Messages that are not part of a client/server dialog
)

const (
	// DirString is a constant used for the structured logger
	DirString = "direction"

	// DirFromString is a constant used for the structured logger
	DirFromString = "from"

	// DirToString is a constant used for the structured logger
	DirToString = "to"
)

const (
	// LevelError is the Level for only ERROR log messages
	LevelError Level = iota
	// LevelWarn is the Level for WARN and higher log messages
	LevelWarn
	// LevelInfo is the Level for INFO and higher log messages
	LevelInfo
	// LevelDebug is the Level for DEBUG and higher log messages
	LevelDebug
)

// Direction is a type wrapper for the direction a debug log message goes
type Direction int

// Level is a type wrapper for an int
type Level int

// Log represents a log message type that holds a log Direction, a Format string
// and a slice of Messages
type Log struct {
	Direction Direction
	Format    string
	Messages  []interface{}
}

// Logger is the log interface for go-securemail
type Logger interface {
	Debugf(Log)
	Infof(Log)
	Warnf(Log)
	Errorf(Log)
}

// ParseLevel converts a textual level ("debug", "info", "warn"/"warning", "error") into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", level)
	}
}

// String satisfies the fmt.Stringer interface for the Level type
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// directionPrefix returns the prefix string that is prepended to the formatted log message
func (l Log) directionPrefix() string {
	switch l.Direction {
	case DirServerToClient:
		return "C <-- S:"
	case DirClientToServer:
		return "C --> S:"
	default:
		return ""
	}
}

// directionFrom returns the source of the log message for the structured loggers
func (l Log) directionFrom() string {
	switch l.Direction {
	case DirServerToClient:
		return "server"
	case DirClientToServer:
		return "client"
	default:
		return "internal"
	}
}

// directionTo returns the destination of the log message for the structured loggers
func (l Log) directionTo() string {
	switch l.Direction {
	case DirServerToClient:
		return "client"
	case DirClientToServer:
		return "server"
	default:
		return "internal"
	}
}

// message formats the Log into its final text, prefixed with the direction if there is one
func (l Log) message() string {
	msg := fmt.Sprintf(l.Format, l.Messages...)
	if prefix := l.directionPrefix(); prefix != "" {
		return prefix + " " + msg
	}
	return msg
}
