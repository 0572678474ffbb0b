// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     grpc
// Description: Mapping between structured errors and gRPC status errors
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package grpc

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

// ErrorDomain identifies callexpr errors in google.rpc.ErrorInfo details
const ErrorDomain = "callexpr"

// CodeFor maps an error code to a gRPC status code
func CodeFor(code mdwerror.Code) codes.Code {
	switch code {
	case mdwerror.CodeMalformedExpression, mdwerror.CodeEmptyExpression,
		mdwerror.CodeUnterminatedQuote, mdwerror.CodeDepthExceeded,
		mdwerror.CodeInvalidInput:
		return codes.InvalidArgument
	case mdwerror.CodeInputTooLong:
		return codes.ResourceExhausted
	case mdwerror.CodeNotFound:
		return codes.NotFound
	case mdwerror.CodeTimeout:
		return codes.DeadlineExceeded
	case mdwerror.CodeServiceUnavailable:
		return codes.Unavailable
	case mdwerror.CodeInternal, mdwerror.CodeDatabaseError, mdwerror.CodeConfigError:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// ToStatus converts err into a gRPC status error. Structured errors keep
// their code and details in a google.rpc.ErrorInfo.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *mdwerror.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Unknown, err.Error())
	}

	st := status.New(CodeFor(e.Code()), err.Error())
	info := &errdetails.ErrorInfo{
		Reason:   string(e.Code()),
		Domain:   ErrorDomain,
		Metadata: make(map[string]string),
	}
	for k, v := range e.Details() {
		info.Metadata[k] = fmt.Sprint(v)
	}
	if withDetails, derr := st.WithDetails(info); derr == nil {
		st = withDetails
	}
	return st.Err()
}

// FromStatus rebuilds a structured error from a gRPC status error. Integer
// metadata values are restored as ints.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	out := mdwerror.New(st.Message()).WithOperation("grpc.client")
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.Domain != ErrorDomain {
			continue
		}
		out = out.WithCode(mdwerror.Code(info.Reason))
		for k, v := range info.Metadata {
			if n, err := strconv.Atoi(v); err == nil {
				out = out.WithDetail(k, n)
				continue
			}
			out = out.WithDetail(k, v)
		}
		return out
	}

	switch st.Code() {
	case codes.Unavailable:
		out = out.WithCode(mdwerror.CodeServiceUnavailable)
	case codes.DeadlineExceeded:
		out = out.WithCode(mdwerror.CodeTimeout)
	case codes.InvalidArgument:
		out = out.WithCode(mdwerror.CodeInvalidInput)
	case codes.NotFound:
		out = out.WithCode(mdwerror.CodeNotFound)
	default:
		out = out.WithCode(mdwerror.CodeInternal)
	}
	return out
}
