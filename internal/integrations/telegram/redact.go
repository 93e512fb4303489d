package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const redactedToken = "<redacted>"

// redactedError carries a scrubbed message. It unwraps to the transport cause
// (a timeout, EOF, cancellation) but never to the *url.Error holding the URL.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redact strips the bot token and the path of any Bot API URL from err.
func (c *Client) redact(err error) error {
	return RedactError(err, c.token)
}

// RedactError returns err with token and the path of any Bot API URL
// removed from its message. Errors that carry neither come back unchanged.
func RedactError(err error, token string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var cause error

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = strings.ReplaceAll(msg, urlErr.URL, redactURL(urlErr.URL))
		cause = urlErr.Err
	}
	msg = redactString(msg, token)
	if cause == nil && msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: cause}
}

// redactURL keeps scheme and host, which is enough to tell endpoints apart in
// logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return redactedToken
	}
	return u.Scheme + "://" + u.Host + "/" + redactedToken
}

func redactString(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, redactedToken)
}

// LibraryLogger routes the Bot API library's own log lines (update polling
// failures, which quote request URLs) to slog with the token scrubbed.
// Install it with tgbotapi.SetLogger.
type LibraryLogger struct {
	logger *slog.Logger
	token  string
}

func NewLibraryLogger(logger *slog.Logger, token string) *LibraryLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryLogger{
		logger: logger.With(slog.String("component", "telegram-bot-api")),
		token:  token,
	}
}

func (l *LibraryLogger) Println(v ...interface{}) {
	l.logger.Warn(redactString(strings.TrimSuffix(fmt.Sprintln(v...), "\n"), l.token))
}

func (l *LibraryLogger) Printf(format string, v ...interface{}) {
	l.logger.Warn(redactString(fmt.Sprintf(format, v...), l.token))
}
