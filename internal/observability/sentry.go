package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables fault reporting when dsn is set. The returned func flushes pending events.
func InitSentry(dsn, env string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err; a no-op when sentry was never initialised.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}
