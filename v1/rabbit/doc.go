// Package rabbit is the durable messaging core of the catalog workers: it
// connects to RabbitMQ, keeps the connection alive, publishes persistent
// messages and consumes them with explicit acknowledgement.
//
// # Architecture
//
// Three types share one connection:
//
//   - ConnectionManager owns the connection and its single channel. It is a
//     state machine (Disconnected, Connecting, Connected, Closing) driven by
//     one scheduler goroutine. Close and error notifications from the broker
//     become events on that goroutine, which clears the session and schedules
//     a reconnect after Channel.ReconnectDelay (5s by default). Every
//     reconnect declares the configured queues again, durable.
//   - Publisher sends through the default exchange with persistent delivery,
//     waits for the broker confirm and reports the result as a bool.
//   - Consumer subscribes with manual acknowledgement and dispatches each
//     delivery to a handler chosen by a Resolver.
//
// # Startup policy
//
// Start makes up to Startup.MaxAttempts connection attempts. If all fail and
// Startup.FailFast is set it returns a *StartupConnectError so the process
// supervisor can restart the process. With FailFast off the manager stays
// Disconnected and keeps retrying in the background; Publish returns false
// until it connects. Publisher-only roles usually choose the latter.
//
// # Publishing
//
//	m := rabbit.NewConnectionManager(cfg, rabbit.WithLogger(log))
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.GracefulShutdown(context.Background())
//
//	pub := rabbit.NewPublisher(m)
//	if !pub.Publish(ctx, "game_events", event) {
//		// not sent: answer 503, or drop
//	}
//
// Publish makes at most one reconnect attempt when no channel is held and
// never retries the send. It returns false when the broker has blocked the
// connection, when the send fails (the connection is then treated as lost)
// and when the confirm does not arrive in time.
//
// # Consuming
//
//	c := rabbit.NewConsumer(m, "game_events",
//		rabbit.WithResolver(events.GameEventResolver),
//		rabbit.WithMaxDeliveries(3),
//	)
//	c.Handle("create", handleCreate)
//	err := c.Consume(ctx)
//
// Handler results map to acknowledgements:
//
//   - nil: ack
//   - an error built with Malformed: nack without requeue (poison message)
//   - any other error: nack with requeue
//
// With WithMaxDeliveries a message whose handler keeps failing is dropped
// once its delivery count reaches the bound. Dropped messages are passed to
// the WithDropHook hook first; with a DeadLetter config the broker routes
// them to the dead-letter queue.
//
// # Errors
//
// Transport errors never reach callers in driver form. TranslateError maps
// them onto the package sentinels; the typed errors are ConnectError,
// StartupConnectError, PublishError, HandlerError, MalformedMessageError and
// ShutdownError.
//
// # Observability
//
// An Observer receives every connect, publish and consume. Trace context is
// carried in message headers using the global OpenTelemetry propagator.
//
// # FX
//
//	app := fx.New(
//		rabbit.FXModule,
//		fx.Provide(func() rabbit.Config { return cfg.Rabbit }),
//	)
package rabbit
