// Package nlog - dartrt logger: leveled, buffered, timestamped writing.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Level is the diagnostic verbosity named by spec §6's log_level option.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

var (
	mu      sync.Mutex
	level   = LevelInfo
	out     = os.Stderr
	linebuf = newFixed(4096)
)

func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l <= level
}

func emit(l Level, format string, args ...interface{}) {
	if !enabled(l) {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	linebuf.formatLine(time.Now().UTC(), l, fmt.Sprintf(format, args...))
	out.Write(linebuf.bytes())
}

func Errorf(format string, args ...interface{}) { emit(LevelError, format, args...) }
func Warnf(format string, args ...interface{})  { emit(LevelWarn, format, args...) }
func Infof(format string, args ...interface{})  { emit(LevelInfo, format, args...) }
func Debugf(format string, args ...interface{}) { emit(LevelDebug, format, args...) }
func Tracef(format string, args ...interface{}) { emit(LevelTrace, format, args...) }

func Errorln(args ...interface{}) { emit(LevelError, "%s", fmt.Sprint(args...)) }
func Infoln(args ...interface{})  { emit(LevelInfo, "%s", fmt.Sprint(args...)) }
