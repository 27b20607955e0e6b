// Package log records a machine-readable trace of gateway protocol traffic.
//
// It is separate from operational logging (slog): every frame sent or
// received, every connection state change, sequence gap and protocol error
// can be captured as an Event and written to a CBOR stream for later
// inspection with the gateway-log tool.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	opts.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For capture: write to a binary file
//	opts.ProtocolLogger, _ = log.NewFileLogger("/tmp/gateway.glog")
//
//	// Both
//	opts.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a concatenation of CBOR-encoded Events using integer map
// keys, conventionally with a .glog extension. Timestamps keep nanosecond
// precision.
package log
