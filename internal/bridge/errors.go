// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"errors"
	"fmt"

	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
)

// ErrorKind is reported in value16 of a debug event.
type ErrorKind uint8

const (
	KindNoResponse           ErrorKind = 1
	KindInvalidReceiveLength ErrorKind = 2
	KindCRCError             ErrorKind = 3
	KindInvalidResponse      ErrorKind = 4
	KindActorResponse        ErrorKind = 5
	KindUnexpectedError      ErrorKind = 6
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoResponse:
		return "no-response"
	case KindInvalidReceiveLength:
		return "invalid-receive-length"
	case KindCRCError:
		return "crc-error"
	case KindInvalidResponse:
		return "invalid-response"
	case KindActorResponse:
		return "actor-response"
	case KindUnexpectedError:
		return "unexpected-error"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// TransactionError is returned by Engine.Transact when a response fails
// validation.
type TransactionError struct {
	Kind     ErrorKind
	Received int
	Err      error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("bridge: transaction failed (%v, %d bytes received): %v", e.Kind, e.Received, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, rtu.ErrNoResponse):
		return KindNoResponse
	case errors.Is(err, rtu.ErrShortResponse):
		return KindInvalidReceiveLength
	case errors.Is(err, rtu.ErrCRCMismatch):
		return KindCRCError
	case errors.Is(err, rtu.ErrResponseMismatch):
		return KindInvalidResponse
	}
	return KindUnexpectedError
}
