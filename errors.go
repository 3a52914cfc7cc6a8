// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"errors"
)

// ErrDuplicateName is returned by Pipeline.Register when a registrant
// with the same name is already registered.
var ErrDuplicateName = errors.New("reqflow: duplicate registrant name")

// A HookError reports the failure of a registrant during dispatch.
type HookError struct {
	Hook       Hook
	Registrant string
	Err        error
}

func (e *HookError) Error() string {
	return e.Hook.Name() + " registrant " + e.Registrant + " failed: " + e.Err.Error()
}

// Unwrap returns the registrant's error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// A ValidationError reports a request which failed a URL or header
// check. Check names the check, "url" or "header".
type ValidationError struct {
	Check  string
	Reason error
}

func (e *ValidationError) Error() string {
	return e.Check + " check failed: " + e.Reason.Error()
}

// Unwrap returns the reason.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}
