package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"blocksync/internal/backend/logseq"
	"blocksync/internal/config"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
	// ConnectionErrorUnauthorized indicates the API rejected the token.
	ConnectionErrorUnauthorized
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	case ConnectionErrorUnauthorized:
		return "Unauthorized"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the Logseq API could not be reached or
// refused the request.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns the failure with a hint on how to fix it.
func (e *ConnectionError) Error() string {
	var hint string
	switch e.Type {
	case ConnectionErrorNetwork, ConnectionErrorTimeout:
		hint = "Is Logseq running with the HTTP API server enabled?"
	case ConnectionErrorUnauthorized:
		hint = "Check the API token named by backend.tokenEnv against the Logseq API server settings."
	case ConnectionErrorDNS:
		hint = "Check backend.endpoint in config.yaml."
	case ConnectionErrorTLS:
		hint = "Check the certificate of the API endpoint."
	}

	msg := fmt.Sprintf("%s talking to %s: %v", e.Type, e.Endpoint, e.Reason)
	if hint != "" {
		msg += "\n\n" + hint
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError returns a *ConnectionError when err comes from
// failing to talk to the API, and nil otherwise.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	var apiErr *logseq.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnauthorized, Reason: err}
		}
		return nil
	}

	if errStr := err.Error(); strings.Contains(errStr, "returned status 401") || strings.Contains(errStr, "returned status 403") {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnauthorized, Reason: err}
	}

	if isTLSError(err) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorTLS, Reason: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorDNS, Reason: err}
	}

	if isTimeoutError(err) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorTimeout, Reason: err}
	}

	if isNetworkError(err.Error()) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorNetwork, Reason: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}
	}
	return nil
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "Client.Timeout") || strings.Contains(errStr, "i/o timeout")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// ConfigError indicates config.yaml could not be loaded or is invalid.
type ConfigError struct {
	// Path is the configuration directory.
	Path string
	// Reason is the underlying error.
	Reason error
}

// Error returns the detailed report for validation failures.
func (e *ConfigError) Error() string {
	var collection *config.ConfigurationErrorCollection
	if errors.As(e.Reason, &collection) {
		return fmt.Sprintf("invalid configuration in %s\n\n%s", e.Path, collection.GetDetailedReport())
	}
	return fmt.Sprintf("failed to load configuration from %s: %v", e.Path, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Reason
}

// SyncFailedError indicates that some feeds failed while others may have
// succeeded. The results have already been printed.
type SyncFailedError struct {
	Failed int
	Total  int
}

// Error summarises the failures.
func (e *SyncFailedError) Error() string {
	return fmt.Sprintf("%d of %d feeds failed", e.Failed, e.Total)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *SyncFailedError) Is(target error) bool {
	_, ok := target.(*SyncFailedError)
	return ok
}
