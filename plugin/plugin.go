// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"fmt"
	"time"

	"github.com/gogama/reqflow"
)

// Version is the version reported by every registrant in this package.
const Version = "1.0.0"

// hookSet is a fixed set of hooks a registrant handles.
type hookSet []reqflow.Hook

func (s hookSet) Handles(h reqflow.Hook) bool {
	for _, x := range s {
		if x == h {
			return true
		}
	}
	return false
}

func (hookSet) Version() string { return Version }

// settingBool reads an optional boolean setting.
func settingBool(settings map[string]any, key string) (v bool, ok bool, err error) {
	raw, ok := settings[key]
	if !ok {
		return false, false, nil
	}
	v, ok = raw.(bool)
	if !ok {
		return false, false, fmt.Errorf("setting %q: want bool, got %T", key, raw)
	}
	return v, true, nil
}

// settingInt reads an optional integer setting. Settings decoded from
// YAML or JSON may carry any numeric type.
func settingInt(settings map[string]any, key string) (v int, ok bool, err error) {
	raw, ok := settings[key]
	if !ok {
		return 0, false, nil
	}
	switch n := raw.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int(n)) {
			return int(n), true, nil
		}
	}
	return 0, false, fmt.Errorf("setting %q: want integer, got %v", key, raw)
}

// settingString reads an optional string setting.
func settingString(settings map[string]any, key string) (v string, ok bool, err error) {
	raw, ok := settings[key]
	if !ok {
		return "", false, nil
	}
	v, ok = raw.(string)
	if !ok {
		return "", false, fmt.Errorf("setting %q: want string, got %T", key, raw)
	}
	return v, true, nil
}

// elapsed is the run's duration as of the dispatch of p. A payload
// without a time, as built by hand, falls back to the wall clock.
func elapsed(p *reqflow.Payload) time.Duration {
	now := p.Time
	if now.IsZero() {
		now = time.Now()
	}
	return p.Execution.Duration(now)
}
