// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors provides user-friendly error handling for HTTP requests.
package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the kind of network failure detected.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Canceled
)

// Classify inspects err and returns the most specific Category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return Generic
	case isCanceled(err):
		return Canceled
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	default:
		return Generic
	}
}

// Describe writes a user-friendly explanation of a transport error to w.
// host names the server being contacted; the raw error is printed last.
func Describe(w io.Writer, err error, host string) {
	if err == nil {
		return
	}
	if host == "" {
		host = "the server"
	}

	var b strings.Builder
	switch Classify(err) {
	case Canceled:
		b.WriteString("🛑 Request canceled before a response arrived\n")
	case Timeout:
		fmt.Fprintf(&b, "⏱️  Timed out waiting for %s\n\n", host)
		b.WriteString("The server took too long to respond. This could mean:\n")
		b.WriteString("  • The query is long-running (raise --timeout)\n")
		b.WriteString("  • Slow or unstable internet connection\n")
		b.WriteString("  • The service is under heavy load\n")
	case DNS:
		fmt.Fprintf(&b, "🌐 Cannot resolve %s\n\n", host)
		b.WriteString("Please check:\n")
		b.WriteString("  • Your internet connection is working\n")
		b.WriteString("  • The api_url setting is spelled correctly\n")
		b.WriteString("  • No DNS-level blocking (corporate firewall, VPN)\n")
	case ConnectionRefused:
		fmt.Fprintf(&b, "🚫 Connection refused by %s\n\n", host)
		b.WriteString("The server is not accepting connections. This could mean:\n")
		b.WriteString("  • Wrong api_url or port\n")
		b.WriteString("  • A local stack is not running\n")
		b.WriteString("  • Firewall is blocking the connection\n")
	case TLS:
		fmt.Fprintf(&b, "🔒 Secure connection to %s failed\n\n", host)
		b.WriteString("Try:\n")
		b.WriteString("  • Check your system date and time\n")
		b.WriteString("  • Verify network proxy settings\n")
	default:
		fmt.Fprintf(&b, "❌ Cannot reach %s\n", host)
	}

	fmt.Fprintln(w, pterm.Error.Sprint(strings.TrimRight(b.String(), "\n")))
	fmt.Fprintln(w, pterm.NewStyle(pterm.FgGray).Sprint("Technical details: "+err.Error()))
}

func isCanceled(err error) bool {
	return strings.Contains(err.Error(), "context canceled")
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
