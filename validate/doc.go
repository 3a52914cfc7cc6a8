// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package validate provides request safety checks which plug into the
reqflow.Client URLValidator and HeaderValidator fields.

URL accepts only http and https URLs. In strict mode it also refuses
hosts which name the local machine or a private network, as a first
line of defence against server-side request forgery:

	client := &reqflow.Client{
		URLValidator:    validate.URL{Strict: true},
		HeaderValidator: validate.Header{},
	}

Header refuses header fields that could be used for header injection.
*/
package validate
