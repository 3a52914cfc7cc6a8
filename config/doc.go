// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package config loads reqflow settings and turns them into engine values.

Settings are layered, each layer overriding the one before it:

	1. built-in defaults
	2. an optional YAML file (WithFile)
	3. in-memory YAML (WithYAML)
	4. environment variables prefixed with REQFLOW_

Environment variable names are lower-cased after the prefix is removed,
and a double underscore separates nesting levels, so
REQFLOW_RETRY__MAX_ATTEMPTS sets retry.max_attempts.

	cfg, err := config.Load(config.WithFile("reqflow.yaml"))
	if err != nil {
		return err
	}
	cl, err := cfg.NewClient(nil)
	if err != nil {
		return err
	}
	p, err := cfg.NewPlan("GET", "/v1/items", nil)
	...
	resp, err := cl.Run(ctx, p, nil, cfg.StreamConfig(nil))
*/
package config
