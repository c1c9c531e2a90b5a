package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"

	"routinedash/pkg/circuitbreaker"
)

// 错误分类，用于日志、指标以及返回给 UI 的 toast 文案
const (
	KindNone        = ""
	KindCanceled    = "canceled"
	KindTimeout     = "network_timeout"
	KindNetwork     = "network_error"
	KindCircuitOpen = "circuit_open"
	KindDecode      = "decode_error"
	KindServer      = "server_error"
	KindClient      = "client_error"
	KindNotFound    = "not_found"
	KindValidation  = "validation_error"
	KindUnknown     = "unknown_error"
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Validator is implemented by input validation errors.
type Validator interface {
	Validation() bool
}

// ClassifyError maps err to one of the Kind* constants.
func ClassifyError(err error) string {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return KindCircuitOpen
	}

	var v Validator
	if errors.As(err, &v) && v.Validation() {
		return KindValidation
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 404:
			return KindNotFound
		case code >= 500:
			return KindServer
		case code >= 400:
			return KindClient
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindDecode
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}

	return KindUnknown
}

// IsTransient reports whether showing "try again" makes sense for err.
func IsTransient(err error) bool {
	switch ClassifyError(err) {
	case KindTimeout, KindNetwork, KindServer, KindCircuitOpen:
		return true
	default:
		return false
	}
}
