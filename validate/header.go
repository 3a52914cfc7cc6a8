// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package validate

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const (
	// MaxHeaderNameLen is the longest header name Header accepts.
	MaxHeaderNameLen = 1024
	// MaxHeaderValueLen is the longest header value Header accepts.
	MaxHeaderValueLen = 8192
)

// ErrInvalidHeader is wrapped by every error returned from
// Header.ValidateHeader and ParseHeader.
var ErrInvalidHeader = errors.New("invalid header")

// Header validates request header fields against injection. The name
// must be a non-empty HTTP token no longer than MaxHeaderNameLen. The
// value must not contain CR, LF or any control character other than
// tab, and must be no longer than MaxHeaderValueLen.
type Header struct{}

// ValidateHeader reports why the field name: value is unsafe, or nil.
func (Header) ValidateHeader(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("empty name")
	}
	if len(name) > MaxHeaderNameLen {
		return invalid("name longer than %d bytes", MaxHeaderNameLen)
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return invalid("name %q contains invalid characters", name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return invalid("value of %s contains CR or LF", name)
	}
	if len(value) > MaxHeaderValueLen {
		return invalid("value of %s longer than %d bytes", name, MaxHeaderValueLen)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return invalid("value of %s contains control characters", name)
	}
	return nil
}

// ParseHeader splits a "Name: Value" line at the first colon, trims
// surrounding space from both halves and validates the result.
func ParseHeader(line string) (name, value string, err error) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", invalid("expected \"Name: Value\", got %q", line)
	}
	name = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	if err = (Header{}).ValidateHeader(name, value); err != nil {
		return "", "", err
	}
	return name, value, nil
}

func invalid(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidHeader}, a...)...)
}
