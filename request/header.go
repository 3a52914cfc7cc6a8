// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"strings"
)

// A Field is a single header field.
type Field struct {
	Name  string
	Value string
}

// A Header is a request header multimap. Unlike http.Header, it
// preserves the insertion order of fields and the spelling of field
// names as given, while comparing names case-insensitively.
//
// The zero value is an empty header ready to use.
type Header struct {
	fields []Field
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set replaces all fields named name with a single field holding value.
// The replacement keeps the position of the first existing field; if
// there was none, it is appended.
func (h *Header) Set(name, value string) {
	i := h.index(name)
	if i < 0 {
		h.Add(name, value)
		return
	}
	h.fields[i].Value = value
	h.delFrom(name, i+1)
}

// Get returns the value of the first field named name, or the empty
// string if there is none.
func (h Header) Get(name string) string {
	if i := h.index(name); i >= 0 {
		return h.fields[i].Value
	}
	return ""
}

// Values returns the values of every field named name, in insertion
// order.
func (h Header) Values(name string) []string {
	var vs []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

// Has reports whether there is at least one field named name.
func (h Header) Has(name string) bool {
	return h.index(name) >= 0
}

// Del removes every field named name.
func (h *Header) Del(name string) {
	h.delFrom(name, 0)
}

// Len returns the number of fields.
func (h Header) Len() int {
	return len(h.fields)
}

// Fields returns a copy of the fields in insertion order.
func (h Header) Fields() []Field {
	if len(h.fields) == 0 {
		return nil
	}
	fs := make([]Field, len(h.fields))
	copy(fs, h.fields)
	return fs
}

// Each calls fn for every field in insertion order, stopping early if
// fn returns false.
func (h Header) Each(fn func(name, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	return Header{fields: h.Fields()}
}

// HTTP converts h into an http.Header. Field order is preserved among
// values sharing a name.
func (h Header) HTTP() http.Header {
	hh := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		hh.Add(f.Name, f.Value)
	}
	return hh
}

func (h Header) index(name string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

func (h *Header) delFrom(name string, start int) {
	kept := h.fields[:start]
	for _, f := range h.fields[start:] {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	for i := len(kept); i < len(h.fields); i++ {
		h.fields[i] = Field{}
	}
	h.fields = kept
}
