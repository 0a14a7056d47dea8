/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// New builds a Logger from the given config. An empty config yields an
// info-level JSON logger on stdout.
func New(config Config) (Logger, error) {
	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &logger{zlog: zlog}, nil
}

type logger struct {
	zlog zerolog.Logger
}

func (l *logger) Trace() *zerolog.Event { return l.zlog.Trace() }
func (l *logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *logger) Fatal() *zerolog.Event { return l.zlog.Fatal() }

func (l *logger) With() zerolog.Context { return l.zlog.With() }

// WithComponent returns a child logger tagged with the component name.
func (l *logger) WithComponent(component string) Logger {
	return &logger{zlog: l.zlog.With().Str("component", component).Logger()}
}
