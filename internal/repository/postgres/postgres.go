package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/asquebay/cantine-order-service/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New создает и возвращает новый пул соединений с PostgreSQL
func New(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	const op = "repository.postgres.postgres.New"

	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse pgx config: %w", op, err)
	}

	// настройка пула соединений
	poolConfig.MaxConns = 10
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create connection pool: %w", op, err)
	}

	// проверяем, что соединение установлено
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return dbpool, nil
}

// EnsureSchema создает таблицу заказов, если она отсутствует
// уникальность client_date обеспечивается на уровне БД,
// счётчик version служит для оптимистичной блокировки при обновлении
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const op = "repository.postgres.postgres.EnsureSchema"

	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS commandes (
  id              text PRIMARY KEY,
  client_date     text NOT NULL UNIQUE,
  client          text NOT NULL,
  date_commande   text NOT NULL,
  menu            text NOT NULL DEFAULT '',
  plat            text NOT NULL DEFAULT '',
  pain            text NOT NULL DEFAULT '',
  ingredient      text NOT NULL DEFAULT '',
  accompagnements text[] NOT NULL DEFAULT '{}',
  dessert         text NOT NULL DEFAULT '',
  complement      text NOT NULL DEFAULT '',
  boisson         text NOT NULL DEFAULT '',
  traitee         boolean NOT NULL DEFAULT false,
  created_by      text NOT NULL,
  created_at      timestamptz NOT NULL,
  updated_by      text NOT NULL,
  updated_at      timestamptz NOT NULL,
  version         bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS commandes_date_commande_idx ON commandes (date_commande);
`)
	if err != nil {
		return fmt.Errorf("%s: failed to create schema: %w", op, err)
	}

	return nil
}
