package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type DB struct {
	*sqlx.DB
	driver string
}

type Config struct {
	Driver             string `env:"DB_DRIVER" envDefault:"postgres"`
	Host               string `env:"DB_HOST" envDefault:"localhost"`
	Port               int    `env:"DB_PORT" envDefault:"5432"`
	User               string `env:"DB_USER" envDefault:"ticketboss"`
	Password           string `env:"DB_PASSWORD" envDefault:"ticketboss123"`
	DBName             string `env:"DB_NAME" envDefault:"ticketboss"`
	SSLMode            string `env:"DB_SSLMODE" envDefault:"disable"`
	Path               string `env:"DB_PATH" envDefault:"ticketboss.db"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetimeMin int    `env:"DB_CONN_MAX_LIFETIME_MIN" envDefault:"5"`
	ConnMaxIdleTimeMin int    `env:"DB_CONN_MAX_IDLE_TIME_MIN" envDefault:"1"`
}

func (cfg Config) dsn() (string, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverPGX:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode), nil
	case DriverMySQL:
		auth := cfg.User
		if cfg.Password != "" {
			auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
		}
		// parseTime=true -> DATETIME -> time.Time
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, cfg.Host, cfg.Port, cfg.DBName), nil
	case DriverSQLite:
		if cfg.Path == ":memory:" {
			return "file::memory:?_pragma=foreign_keys(1)", nil
		}
		return "file:" + cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Connect(cfg Config) (*DB, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite has a single writer; an in-memory database also lives and
		// dies with its only connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMin) * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to database",
		"driver", cfg.Driver, "host", cfg.Host, "port", cfg.Port, "dbname", cfg.DBName,
		"max_open_conns", db.Stats().MaxOpenConnections)

	return &DB{DB: db, driver: cfg.Driver}, nil
}

// Driver returns the name the database was opened with
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx runs fn inside a single transaction. The transaction is rolled
// back when fn returns an error or panics and committed otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
