// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The catalog session carries a login password, session cookies and form
// values that must never reach a log file, even in verbose mode. The
// SecureHandler masks them before records reach the underlying handler:
//   - HTTP headers (Authorization, Cookie, Set-Cookie)
//   - Login form fields (email, password)
//   - Secret values detected by pattern matching (bearer tokens, JWTs)
//   - The values of email, password and unlockCode parameters inside URLs,
//     form bodies and error messages, leaving the rest readable
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("login submitted",
//	    "email", "monk@abbey.test", // masked
//	    "url", "https://catalog.example/login",
//	)
//
//	slog.SetDefault(logger)
package log
