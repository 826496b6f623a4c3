// internal/classify/classify.go
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// Fault codes recognized by Message. Names follow the POSIX errno a socket
// layer reports for the same condition.
const (
	CodeTimedOut           = "ETIMEDOUT"
	CodeHostNotFound       = "ENOTFOUND"
	CodeConnRefused        = "ECONNREFUSED"
	CodeConnReset          = "ECONNRESET"
	CodeHostUnreachable    = "EHOSTUNREACH"
	CodeNetworkUnreachable = "ENETUNREACH"
)

// fallbackMessage is used when a fault carries neither a known code nor text.
const fallbackMessage = "Unknown error contacting Minecraft server"

// Fault is a transport failure reduced to what the user message needs.
type Fault struct {
	Code    string // one of the Code* constants, or anything else
	Address string
	Port    int
	Message string // generic text, used verbatim for unknown codes
}

// Message maps a fault to human-readable text.
// Total: unknown codes fall through to the fault's own message.
func Message(f Fault) string {
	switch f.Code {
	case CodeTimedOut:
		return "Timed-out contacting Minecraft server"
	case CodeHostNotFound:
		return "Host " + f.Address + " was not found"
	case CodeConnRefused:
		return "Connection refused from " + f.Address + ":" + strconv.Itoa(f.Port)
	case CodeConnReset:
		return "Minecraft server closed the connection"
	case CodeHostUnreachable:
		return f.Address + " is unreachable"
	case CodeNetworkUnreachable:
		return "Network between here and " + f.Address + " is unreachable"
	}

	if f.Message == "" {
		return fallbackMessage
	}
	return f.Message
}

// FromError builds a Fault from a Go transport error.
// Address and port come from the failing peer when the error carries one,
// otherwise from the given fallback.
func FromError(err error, address string, port int) Fault {
	f := Fault{Address: address, Port: port}
	if err == nil {
		return f
	}

	f.Message = err.Error()
	f.Code = faultCode(err)

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Addr != nil {
		if host, p, splitErr := net.SplitHostPort(opErr.Addr.String()); splitErr == nil {
			f.Address = host
			if n, convErr := strconv.Atoi(p); convErr == nil {
				f.Port = n
			}
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.Name != "" {
		f.Address = dnsErr.Name
	}

	return f
}

// Errorf returns a Fault with an unrecognized code and a formatted message.
func Errorf(address string, port int, format string, args ...any) Fault {
	return Fault{
		Address: address,
		Port:    port,
		Message: fmt.Sprintf(format, args...),
	}
}

// faultCode extracts a fault code from an error without assuming concrete
// types. Returns "" when nothing matches.
func faultCode(err error) string {
	type coder interface{ FaultCode() string }

	var c coder
	if errors.As(err, &c) {
		return c.FaultCode()
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnReset
	case errors.Is(err, syscall.EHOSTUNREACH):
		return CodeHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return CodeNetworkUnreachable
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, context.DeadlineExceeded):
		return CodeTimedOut
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CodeTimedOut
		}
		if dnsErr.IsNotFound {
			return CodeHostNotFound
		}
		return ""
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimedOut
	}

	return ""
}
