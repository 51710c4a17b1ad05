package telemetry

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/hitcounter/pkg/build"
)

var log = logging.Logger("telemetry")

// HTTPError is an error that also has an associated HTTP status code
type HTTPError struct {
	err        error
	statusCode int
}

// Error implements the error interface
func (he HTTPError) Error() string {
	return he.err.Error()
}

// Unwrap returns the underlying error
func (he HTTPError) Unwrap() error {
	return he.err
}

// StatusCode returns the HTTP status code associated with the error
func (he HTTPError) StatusCode() int {
	return he.statusCode
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(err error, statusCode int) HTTPError {
	return HTTPError{err: err, statusCode: statusCode}
}

// ErrorReturningHTTPHandler is a HTTP handler function that returns an error
type ErrorReturningHTTPHandler func(http.ResponseWriter, *http.Request) error

// SetupErrorReporting configures the Sentry SDK for error reporting. Errors
// are only logged when dsn is empty.
func SetupErrorReporting(dsn string, environment string) {
	if dsn == "" {
		return
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     build.Version,
		Transport:   sentry.NewHTTPSyncTransport(),
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
}

// NewErrorReportingHandler wraps an ErrorReturningHTTPHandler with error reporting
func NewErrorReportingHandler(errorReturningHandler ErrorReturningHTTPHandler) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := errorReturningHandler(w, r); err != nil {
			ReportError(err)

			// if the error is an HTTPError, send an appropriate response aside from reporting it
			var he HTTPError
			if errors.As(err, &he) {
				http.Error(w, he.Error(), he.StatusCode())
			}
		}
	})

	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	return sentryHandler.Handle(handler)
}

// ReportError logs an error and reports it to Sentry
func ReportError(err error) {
	log.Errorw("reporting error", "error", err)
	sentry.CaptureException(err)
}
