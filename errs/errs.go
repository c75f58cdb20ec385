// Package errs defines the FMF error taxonomy and the mapping from
// error kinds to process exit codes.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Kind identifies one of the seven error categories the engine
// distinguishes for exit-code mapping and propagation policy.
type Kind string

const (
	KindConfig     Kind = "config"
	KindAuth       Kind = "auth"
	KindConnector  Kind = "connector"
	KindProcessing Kind = "processing"
	KindInference  Kind = "inference"
	KindProvider   Kind = "provider"
	KindExport     Kind = "export"
)

// kindedError wraps an underlying error with a taxonomy Kind.
type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }
func (e *kindedError) Kind() Kind    { return e.kind }

func wrap(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, err: errors.Newf(format, args...)}
}

func wrapCause(kind Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return wrap(kind, format, args...)
	}
	return &kindedError{kind: kind, err: errors.Wrapf(cause, format, args...)}
}

// ConfigError reports a malformed chain/config file, an unknown
// connector or sink reference, or an unsupported option value.
func ConfigError(format string, args ...interface{}) error { return wrap(KindConfig, format, args...) }

// ConfigErrorf wraps an existing cause as a ConfigError.
func ConfigErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindConfig, cause, format, args...)
}

// AuthError reports a missing or unresolvable secret.
func AuthError(format string, args ...interface{}) error { return wrap(KindAuth, format, args...) }

// AuthErrorf wraps an existing cause as an AuthError.
func AuthErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindAuth, cause, format, args...)
}

// ConnectorError reports a listing/reading/metadata failure after
// retries are exhausted, or a policy violation such as a missing
// required KMS encryption.
func ConnectorError(format string, args ...interface{}) error {
	return wrap(KindConnector, format, args...)
}

// ConnectorErrorf wraps an existing cause as a ConnectorError.
func ConnectorErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindConnector, cause, format, args...)
}

// ProcessingError reports a decode/parse failure in a loader, or a
// missing optional dependency for a media type.
func ProcessingError(format string, args ...interface{}) error {
	return wrap(KindProcessing, format, args...)
}

// ProcessingErrorf wraps an existing cause as a ProcessingError.
func ProcessingErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindProcessing, cause, format, args...)
}

// InferenceError reports a provider HTTP/transport failure that
// persisted after retries were exhausted.
func InferenceError(format string, args ...interface{}) error {
	return wrap(KindInference, format, args...)
}

// InferenceErrorf wraps an existing cause as an InferenceError.
func InferenceErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindInference, cause, format, args...)
}

// ProviderError reports a capability unavailable on the selected
// provider, e.g. streaming requested but unsupported.
func ProviderError(format string, args ...interface{}) error {
	return wrap(KindProvider, format, args...)
}

// ProviderErrorf wraps an existing cause as a ProviderError.
func ProviderErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindProvider, cause, format, args...)
}

// ExportError reports a sink write failure, including an unsupported
// export mode.
func ExportError(format string, args ...interface{}) error { return wrap(KindExport, format, args...) }

// ExportErrorf wraps an existing cause as an ExportError.
func ExportErrorf(cause error, format string, args ...interface{}) error {
	return wrapCause(KindExport, cause, format, args...)
}

// KindOf extracts the taxonomy Kind from err, walking the cause chain.
// Returns ("", false) when err (or none of its causes) carries a Kind.
func KindOf(err error) (Kind, bool) {
	var ke *kindedError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return "", false
}

// ExitCode maps err to the process exit code documented for the
// engine: 0 ok, 1 generic, 2 config, 3 auth, 4 connector, 5
// processing, 6 inference/provider, 7 export.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case KindConfig:
		return 2
	case KindAuth:
		return 3
	case KindConnector:
		return 4
	case KindProcessing:
		return 5
	case KindInference, KindProvider:
		return 6
	case KindExport:
		return 7
	default:
		return 1
	}
}
