// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pgerror

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
)

// InternalErrorPrefix is prepended on internal errors.
const InternalErrorPrefix = "internal error: "

// Error is the flattened, client-facing form of an error.
type Error struct {
	Code    string
	Message string
	Detail  string
	Hint    string
}

func (e *Error) Error() string {
	return e.Message
}

// Flatten turns any error into a pgerror with fields populated.
// Returns a nil ptr if err was nil to start with.
func Flatten(err error) *Error {
	if err == nil {
		return nil
	}
	resErr := &Error{
		Code:    GetPGCode(err).String(),
		Message: err.Error(),
		Hint:    errors.FlattenHints(err),
		Detail:  errors.FlattenDetails(err),
	}

	if resErr.Code == pgcode.Internal.String() {
		if !strings.HasPrefix(resErr.Message, InternalErrorPrefix) {
			// The internal error prefix wasn't there already. Add it.
			resErr.Message = InternalErrorPrefix + resErr.Message
		}
	}
	return resErr
}
