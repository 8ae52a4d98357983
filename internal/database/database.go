package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/logging"
	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// cleanupStaleEmbeddedPostgres cleans up leftover processes from a previous crash
func cleanupStaleEmbeddedPostgres() {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")

	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.Warn().Err(err).Msg("could not parse PID from postmaster.pid")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		log.Info().Int("pid", pid).Msg("removing stale postmaster.pid")
		os.Remove(pidFile)
		return
	}

	// On Unix FindProcess always succeeds, signal 0 checks liveness
	if err := process.Signal(syscall.Signal(0)); err != nil {
		log.Info().Int("pid", pid).Msg("removing stale postmaster.pid")
		os.Remove(pidFile)
		return
	}

	log.Warn().Int("pid", pid).Msg("found orphaned embedded postgres, stopping it")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.Warn().Err(err).Int("pid", pid).Msg("SIGTERM failed")
	}

	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if err := process.Signal(syscall.Signal(0)); err != nil {
			os.Remove(pidFile)
			return
		}
	}

	log.Warn().Int("pid", pid).Msg("orphaned postgres ignored SIGTERM, killing")
	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

// isPortInUse checks if a port is already in use
func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Connect opens the configured database. PostgreSQL on localhost without a password
// starts an embedded instance.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Type == "sqlite" {
		return open(sqlite.Open(cfg.SQLitePath), cfg, nil)
	}

	var embedded *embeddedpostgres.EmbeddedPostgres
	password := cfg.Password

	if cfg.Host == "localhost" && cfg.Password == "" {
		log.Info().Msg("mode: embedded PostgreSQL")
		cleanupStaleEmbeddedPostgres()

		if isPortInUse(embeddedPort) {
			for i := 0; i < 6 && isPortInUse(embeddedPort); i++ {
				time.Sleep(500 * time.Millisecond)
			}
			if isPortInUse(embeddedPort) {
				return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
			}
		}

		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres"))

		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
		log.Info().Int("port", embeddedPort).Msg("embedded PostgreSQL started")
	} else {
		log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Msg("mode: external PostgreSQL")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		password,
		cfg.Database,
	)

	db, err := open(postgres.Open(dsn), cfg, embedded)
	if err != nil && embedded != nil {
		_ = embedded.Stop()
	}
	return db, err
}

// Open wraps an already chosen dialector; tests use it with in-memory SQLite
func Open(dialector gorm.Dialector, cfg config.DatabaseConfig) (*DB, error) {
	return open(dialector, cfg, nil)
}

func open(dialector gorm.Dialector, cfg config.DatabaseConfig, embedded *embeddedpostgres.EmbeddedPostgres) (*DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(log.Logger, cfg.Quiet),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(max(cfg.MaxOpenConns/2, 1))
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Str("dialect", dialector.Name()).Msg("database connection established")

	return &DB{
		DB:       db,
		embedded: embedded,
	}, nil
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if db.embedded != nil {
		log.Info().Msg("stopping embedded PostgreSQL")
		_ = db.embedded.Stop()
	}
	return err
}

// AutoMigrate synchronizes the schema for every persisted model
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(models.All()...)
}

// Ping verifies the connection is usable
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ContainsPattern builds a lowercase LIKE pattern matching value as a literal
// substring. Wildcards are escaped with '!', so pair it with ESCAPE '!'.
func ContainsPattern(value string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(value)) + "%"
}
