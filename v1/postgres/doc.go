// Package postgres provides a gorm-backed PostgreSQL client with a ping
// monitor that swaps in a fresh connection pool after failures.
//
// Only the operations the dead-letter store needs are exposed through
// Client; DB returns the underlying *gorm.DB for anything else.
//
//	app := fx.New(
//		logger.FXModule,
//		postgres.FXModule,
//		fx.Provide(func() postgres.Config { return cfg.Postgres }),
//	)
package postgres
