package proto

import (
	"errors"
)

type Proto uint8

const (
	Unknown Proto = 0
	HTTP10  Proto = 1 << iota
	HTTP11
)

// ErrNotSupported is returned for any version token other than HTTP/1.0 and HTTP/1.1.
var ErrNotSupported = errors.New("HTTP version not supported")

func (p Proto) String() string {
	switch p {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return ""
	}
}

const (
	protoTokenLength   = len("HTTP/x.x")
	majorVersionOffset = len("HTTP/x") - 1
	minorVersionOffset = len("HTTP/x.x") - 1
	httpScheme         = "HTTP/"
)

var majorMinorVersionLUT = [10][10]Proto{
	1: {0: HTTP10, 1: HTTP11},
}

// Parse recognizes the HTTP-version token, e.g. HTTP/1.1. The scheme is case-sensitive.
func Parse(str string) (Proto, error) {
	if len(str) != protoTokenLength || str[:majorVersionOffset] != httpScheme ||
		str[majorVersionOffset+1] != '.' {
		return Unknown, ErrNotSupported
	}

	major, minor := str[majorVersionOffset]-'0', str[minorVersionOffset]-'0'
	if major > 9 || minor > 9 {
		return Unknown, ErrNotSupported
	}

	if p := majorMinorVersionLUT[major][minor]; p != Unknown {
		return p, nil
	}

	return Unknown, ErrNotSupported
}
