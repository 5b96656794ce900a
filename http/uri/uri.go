package uri

import (
	"errors"
	"strings"

	"github.com/indigo-web/h1parse/internal/hexconv"
)

// Form is the request-target form, as defined by RFC 9112, section 3.2.
type Form uint8

const (
	Unknown Form = iota
	// Origin is the form of /path?query.
	Origin
	// Absolute is the form of scheme://host/path?query, used mostly with proxies.
	Absolute
	// Authority is the form of host:port, used by CONNECT.
	Authority
	// Asterisk is the single *, used by server-wide OPTIONS.
	Asterisk
)

func (f Form) String() string {
	switch f {
	case Origin:
		return "origin"
	case Absolute:
		return "absolute"
	case Authority:
		return "authority"
	case Asterisk:
		return "asterisk"
	default:
		return "unknown"
	}
}

var (
	ErrEmpty          = errors.New("empty request target")
	ErrMalformed      = errors.New("malformed request target")
	ErrBadEncoding    = errors.New("invalid urlencoded sequence")
	ErrProhibitedChar = errors.New("prohibited character in request target")
	ErrFragment       = errors.New("fragments are not allowed in request target")
)

// URI is a parsed request target. Raw always holds the target exactly as it was received,
// Path is percent-decoded and Query is left untouched.
type URI struct {
	Raw    string
	Form   Form
	Scheme string
	Host   string
	Path   string
	Query  string
}

func (u URI) String() string {
	return u.Raw
}

// Parse recognizes the request target. The passed string is retained, so it must not
// reference any reusable memory.
func Parse(raw string) (URI, error) {
	if len(raw) == 0 {
		return URI{}, ErrEmpty
	}

	for i := 0; i < len(raw); i++ {
		if isProhibitedChar(raw[i]) {
			return URI{}, ErrProhibitedChar
		}

		if raw[i] == '#' {
			return URI{}, ErrFragment
		}
	}

	u := URI{Raw: raw}

	switch {
	case raw == "*":
		u.Form = Asterisk
		return u, nil
	case raw[0] == '/':
		u.Form = Origin
		return u, u.splitPath(raw)
	}

	if scheme, rest, found := strings.Cut(raw, "://"); found {
		if len(scheme) == 0 || len(rest) == 0 {
			return URI{}, ErrMalformed
		}

		u.Form = Absolute
		u.Scheme = scheme
		slash := strings.IndexAny(rest, "/?")
		if slash == -1 {
			u.Host, u.Path = rest, "/"
			return u, nil
		}

		u.Host = rest[:slash]
		if rest[slash] == '?' {
			u.Path, u.Query = "/", rest[slash+1:]
			return u, nil
		}

		return u, u.splitPath(rest[slash:])
	}

	host, port, found := strings.Cut(raw, ":")
	if !found || len(host) == 0 || len(port) == 0 || strings.ContainsAny(raw, "/?") {
		return URI{}, ErrMalformed
	}

	u.Form = Authority
	u.Host = raw

	return u, nil
}

func (u *URI) splitPath(target string) (err error) {
	path, query, _ := strings.Cut(target, "?")
	u.Query = query
	u.Path, err = Decode(path)

	return err
}

// Decode translates percent-encoded sequences into their true form. The original string is
// returned if there's nothing to decode.
func Decode(src string) (string, error) {
	i := strings.IndexByte(src, '%')
	if i == -1 {
		return src, nil
	}

	buff := make([]byte, 0, len(src))

	for ; i != -1; i = strings.IndexByte(src, '%') {
		if i+2 >= len(src) {
			return "", ErrBadEncoding
		}

		c, ok := hexconv.Decode(src[i+1], src[i+2])
		if !ok {
			return "", ErrBadEncoding
		}

		if isProhibitedChar(c) {
			return "", ErrProhibitedChar
		}

		buff = append(buff, src[:i]...)
		buff = append(buff, c)
		src = src[i+3:]
	}

	return string(append(buff, src...)), nil
}

func isProhibitedChar(c byte) bool {
	return c < 0x20 || c == 0x7f
}
