// Package logger provides the structured zap logger shared by the catalog
// event workers.
//
// # Architecture
//
//   - Logger interface: the contract other packages accept
//   - LoggerClient struct: the zap-backed implementation
//   - FXModule: provides both and flushes on shutdown
//
// Entries are JSON with an ISO8601 "timestamp", a capitalised "level", the
// caller, and the process "pid" and "service" fields. Each method takes a
// message, an optional error and any number of field maps:
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "message-consumer"})
//	log.Info("consumer started", nil, map[string]interface{}{"queue": "game_events"})
//	log.Error("status callback failed", err, map[string]interface{}{"game_id": 42})
//
// # Trace correlation
//
// With Config.EnableTracing set, the *WithContext variants add "trace_id" and
// "span_id" when ctx carries a valid OpenTelemetry span:
//
//	ctx, span := tracer.StartSpan(ctx, "process-image")
//	defer span.End()
//	log.InfoWithContext(ctx, "thumbnail stored", nil, map[string]interface{}{"key": key})
//
// # FX
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config { return cfg.Logger }),
//	)
package logger
