// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package plugin provides ready-made registrants for the reqflow hook
pipeline.

	hooks := &reqflow.Pipeline{}
	_ = hooks.Register(plugin.NewRequestID(""))
	_ = hooks.Register(plugin.NewHeaders("my-app/1.2", nil))
	_ = hooks.Register(plugin.NewRateLimit(600, nil))
	_ = hooks.Register(plugin.NewLogging(&logger))
	_ = hooks.Register(plugin.NewMetrics(prometheus.DefaultRegisterer))
	_ = hooks.Register(plugin.NewTracing(nil))

Registration order matters: registrants run in the order registered, so
registrants which modify the request, such as Headers and RequestID,
should precede those which only observe it.
*/
package plugin
