// Package auth implements the instrumented request handler for authd.
//
// # Overview
//
// Each invocation runs a fixed sequence: open a span, log the incoming
// request, increment the request counter, execute the domain operation,
// record a duration sample, and close the span. The span is closed on
// every exit path, including domain errors and panics.
//
// The domain operation itself is a placeholder: an Authenticator that
// reports the service healthy. The telemetry discipline around it is
// the real content of this package.
//
// # Error contract
//
// Domain errors are annotated (error counter, span status, error log)
// and then returned to the caller unchanged. The handler never swallows
// a domain error and never converts one into a success response; the
// host runtime owns the failure response.
//
// # Usage
//
//	metrics := auth.NewMetrics(tel.Meter("authd.handler"), logger.Underlying())
//	handler, err := auth.NewHandler(auth.HandlerConfig{
//	    Authenticator: auth.Healthy(),
//	    Tracer:        tel.Tracer("authd.handler"),
//	    Metrics:       metrics,
//	    Logger:        logger,
//	    ServiceName:   cfg.Service.Name,
//	    TableName:     cfg.Service.TableName,
//	})
//	if err != nil {
//	    return err
//	}
//	resp, err := handler.Handle(ctx, auth.Event{HTTPMethod: "GET", Path: "/"})
package auth
