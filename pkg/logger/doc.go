// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The package standardizes structured logging across the pipeline by exposing
// a single factory, New, that creates a *slog.Logger configured by a set of
// Option functions. These options allow you to:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//   - Register ContextExtractor callbacks that inject attributes pulled from
//     a context value (for example the campaign SKU being processed) every
//     time Handle is invoked.
//
// # Architecture
//
// New determines the concrete slog.Handler implementation, TextHandler or
// JSONHandler, based on the configured Format, then wraps it with
// LogHandlerDecorator which runs any registered ContextExtractor callbacks
// before delegating to the underlying handler.
//
// Helper constructors such as Group, Error, Resource and SKU live in attr.go
// and keep attribute naming consistent across the codebase.
//
// # Usage
//
//	import "github.com/creativepipe/cap/pkg/logger"
//
//	func main() {
//	    log := logger.New(
//	        logger.WithDevelopment("cap"),
//	        logger.WithContextValue("sku", ctxKeySKU),
//	    )
//	    logger.SetAsDefault(log)
//
//	    ctx := context.WithValue(context.Background(), ctxKeySKU, "CHAIR-001")
//	    log.InfoContext(ctx, "rendered variant",
//	        logger.Duration(time.Since(start)),
//	    )
//	}
//
// For env-driven setup, parse Config with the config package and call
// NewFromConfig:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg, "cap")
//
// # Error Handling
//
// Error and Errors produce attributes only when the supplied error is
// non-nil, allowing calls like:
//
//	log.Info("upload finished", logger.Error(err))
//
// without an additional nil check.
package logger
