// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package validate

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ErrUnsafeURL is wrapped by every error returned from URL.ValidateURL.
var ErrUnsafeURL = errors.New("unsafe url")

// URL validates request URLs. The zero value accepts any http or https
// URL with a host.
type URL struct {
	// Strict additionally refuses loopback, private, link-local and
	// unspecified IP addresses, and the host names localhost and
	// *.local. Host names are not resolved, so a public name pointing
	// at a private address is not caught.
	Strict bool
}

// ValidateURL reports why u is not safe to request, or nil.
func (v URL) ValidateURL(u *url.URL) error {
	if u == nil {
		return unsafe("missing url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return unsafe("scheme %q not allowed, only http and https", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return unsafe("missing host")
	}
	if !v.Strict {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr.Unmap())
	}
	name := strings.TrimSuffix(strings.ToLower(host), ".")
	if name == "localhost" || strings.HasSuffix(name, ".localhost") || strings.HasSuffix(name, ".local") {
		return unsafe("local host %q not allowed", host)
	}
	return nil
}

// Parse parses s and validates the result.
func (v URL) Parse(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if err = v.ValidateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkAddr(addr netip.Addr) error {
	switch {
	case addr.IsLoopback():
		return unsafe("loopback address %s not allowed", addr)
	case addr.IsPrivate():
		return unsafe("private address %s not allowed", addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return unsafe("link-local address %s not allowed", addr)
	case addr.IsUnspecified():
		return unsafe("unspecified address %s not allowed", addr)
	}
	return nil
}

func unsafe(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUnsafeURL}, a...)...)
}
