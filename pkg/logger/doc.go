// Package logger builds the application's slog.Logger and injects
// request-scoped identity into every record.
//
// Handlers are wrapped in a decorator that runs ContextExtractor
// functions at log time, so correlation id, request id, and tenant id
// flow into logs automatically from the request scope:
//
//	log := logger.New(
//	    logger.WithProduction("payforge"),
//	    logger.WithContextExtractors(
//	        reqctx.CorrelationIDExtractor(),
//	        reqctx.RequestIDExtractor(),
//	        reqctx.TenantIDExtractor(),
//	    ),
//	)
package logger
