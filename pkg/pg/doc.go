// Package pg wraps pgx/v5 pool setup, goose migrations from an embedded
// filesystem, transactions and SQLSTATE classification.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, db.Migrations, cfg, log); err != nil {
//		return err
//	}
//
//	err = pg.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "...")
//		return err
//	})
//
// Error helpers such as IsDuplicateKeyError and IsForeignKeyViolationError
// unwrap *pgconn.PgError so repositories can translate constraint failures into
// domain errors; ConstraintName tells which constraint fired.
package pg
