package method

import (
	"errors"
)

type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH
)

// ErrNotImplemented is returned when the method token isn't one of the supported methods.
var ErrNotImplemented = errors.New("request method is not supported")

var names = [...]string{
	Unknown: "UNKNOWN",
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	CONNECT: "CONNECT",
	OPTIONS: "OPTIONS",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

func (m Method) String() string {
	if int(m) >= len(names) {
		return names[Unknown]
	}

	return names[m]
}

// Parse recognizes the method token. Methods are case-sensitive, so "get" is not GET.
func Parse(str string) (Method, error) {
	switch len(str) {
	case 3:
		if str == "GET" {
			return GET, nil
		} else if str == "PUT" {
			return PUT, nil
		}
	case 4:
		if str == "POST" {
			return POST, nil
		} else if str == "HEAD" {
			return HEAD, nil
		}
	case 5:
		if str == "PATCH" {
			return PATCH, nil
		} else if str == "TRACE" {
			return TRACE, nil
		}
	case 6:
		if str == "DELETE" {
			return DELETE, nil
		}
	case 7:
		if str == "CONNECT" {
			return CONNECT, nil
		} else if str == "OPTIONS" {
			return OPTIONS, nil
		}
	}

	return Unknown, ErrNotImplemented
}
