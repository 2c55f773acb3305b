package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fastdo_auth/internal/config"
	"fastdo_auth/internal/storage"
	"fastdo_auth/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

var ErrNestedTx = errors.New("transaction already started")

// DBTX - общее подмножество *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Pool - пул соединений, из которого открываются транзакции.
type Pool interface {
	DBTX
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Close()
}

type PostgresRepo struct {
	pool Pool
	q    DBTX

	// inTx включает SELECT ... FOR UPDATE для строк, которые транзакция собирается менять.
	inTx bool
}

var _ storage.Repository = (*PostgresRepo)(nil)

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := Migrate(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithPool(pool), nil
}

func NewWithPool(pool Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool, q: pool}
}

// * Migrate применяет встроенные миграции. goose работает только с database/sql,
// поэтому для него открывается отдельное соединение через драйвер pgx.
func Migrate(ctx context.Context, dsn string) error {
	const op = "storage.postgres.Migrate"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: failed to apply migrations: %w", op, err)
	}

	return nil
}

// * WithTx открывает транзакцию (READ COMMITTED), передает в fn репозиторий,
// привязанный к ней, и фиксирует ее только если fn вернула nil.
// При ошибке или панике транзакция откатывается.
func (r *PostgresRepo) WithTx(ctx context.Context, fn storage.TxFunc) (err error) {
	const op = "storage.postgres.WithTx"

	if r.inTx || r.pool == nil {
		return fmt.Errorf("%s: %w", op, ErrNestedTx)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}

		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("%s: failed to commit transaction: %w", op, commitErr)
		}
	}()

	err = fn(ctx, &PostgresRepo{q: tx, inTx: true})

	return err
}

func (r *PostgresRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *PostgresRepo) lockClause() string {
	if r.inTx {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
