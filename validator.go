// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"net/url"
)

// A URLValidator checks that a request target is safe to contact. It
// returns a non-nil error giving the reason if it is not.
type URLValidator interface {
	ValidateURL(u *url.URL) error
}

// A HeaderValidator checks that a request header field is safe to
// send. It returns a non-nil error giving the reason if it is not.
type HeaderValidator interface {
	ValidateHeader(name, value string) error
}

// The URLValidatorFunc type is an adapter to allow the use of ordinary
// functions as URL validators.
type URLValidatorFunc func(u *url.URL) error

// ValidateURL calls f(u).
func (f URLValidatorFunc) ValidateURL(u *url.URL) error {
	return f(u)
}

// The HeaderValidatorFunc type is an adapter to allow the use of
// ordinary functions as header validators.
type HeaderValidatorFunc func(name, value string) error

// ValidateHeader calls f(name, value).
func (f HeaderValidatorFunc) ValidateHeader(name, value string) error {
	return f(name, value)
}
