// Package log provides the logging setup of perfumeharvest, built on top of
// the standard slog package.
//
// This package adds:
//   - RedactingHandler, which masks credentials that per-site request
//     headers may carry (cookies, authorization values, API keys)
//   - NewLogger, which picks the level (Warn, or Debug when verbose) and the
//     output format (text or JSON)
//   - NewFileWriter, a size-rotated log file
//   - stable event names for harvest progress
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true})
//	logger.Info(log.EventURLFetched,
//	    "url", "https://shop.example/products/amber",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	)
package log
