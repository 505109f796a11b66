// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Site configurations may contain cookies and authorization headers for
// staging environments. The SecureHandler masks them, along with tokens
// detected by pattern and the userinfo and secret query parameters of URLs,
// even in verbose mode.
//
// # Usage
//
//	logger := log.New(os.Stderr, "text", verbose)
//	logger.Info("page loaded", "url", "https://user:pw@example.com/?token=x")
//	// url=https://***REDACTED***@example.com/?token=%2A%2A%2AREDACTED%2A%2A%2A
package log
