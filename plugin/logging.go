// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/failure"
)

// Logging is a registrant which logs the lifecycle of every request:
// start at debug level, retries at warn level, completion at info level
// and failure at error level.
//
// Logging implements reqflow.Initializer and accepts the settings
// "enabled" (bool) and "level" (a zerolog level name, which becomes the
// minimum level logged).
type Logging struct {
	hookSet
	logger  atomic.Pointer[zerolog.Logger]
	enabled atomic.Bool
}

// NewLogging returns an enabled Logging registrant writing to logger.
// A nil logger discards everything.
func NewLogging(logger *zerolog.Logger) *Logging {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := &Logging{
		hookSet: hookSet{reqflow.PreRequest, reqflow.PostRequest, reqflow.OnRetry, reqflow.OnError},
	}
	l.logger.Store(logger)
	l.enabled.Store(true)
	return l
}

// Name returns "logging".
func (*Logging) Name() string { return "logging" }

// Enabled reports whether the registrant is currently logging.
func (l *Logging) Enabled() bool { return l.enabled.Load() }

// SetEnabled switches logging on or off.
func (l *Logging) SetEnabled(enabled bool) { l.enabled.Store(enabled) }

// Initialize applies settings.
func (l *Logging) Initialize(settings map[string]any) error {
	if enabled, ok, err := settingBool(settings, "enabled"); err != nil {
		return err
	} else if ok {
		l.SetEnabled(enabled)
	}
	if name, ok, err := settingString(settings, "level"); err != nil {
		return err
	} else if ok {
		level, err := zerolog.ParseLevel(name)
		if err != nil {
			return fmt.Errorf("setting \"level\": %w", err)
		}
		logger := l.logger.Load().Level(level)
		l.logger.Store(&logger)
	}
	return nil
}

// Handle logs p.
func (l *Logging) Handle(_ context.Context, p *reqflow.Payload) error {
	if !l.Enabled() {
		return nil
	}

	e := p.Execution
	logger := l.logger.Load()
	var ev *zerolog.Event
	switch p.Hook {
	case reqflow.PreRequest:
		ev = logger.Debug()
	case reqflow.OnRetry:
		ev = logger.Warn().
			Int("attempt", p.Attempt).
			Dur("delay", p.Delay).
			Err(p.Err)
	case reqflow.PostRequest:
		ev = logger.Info().
			Int("status", e.StatusCode()).
			Int("attempts", e.Attempt).
			Dur("duration", elapsed(p))
	case reqflow.OnError:
		ev = logger.Error().
			Str("kind", failure.KindOf(p.Err).String()).
			Int("attempts", e.Attempt).
			Dur("duration", elapsed(p)).
			Err(p.Err)
	default:
		return nil
	}
	ev.Str("id", e.ID.String()).
		Str("method", e.Request.Method).
		Str("url", e.Request.URL.Redacted()).
		Msg(p.Hook.Name())
	return nil
}
