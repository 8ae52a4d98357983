package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/logging"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/report"
)

// import_jobs loads historical jobs from a report-shaped CSV or XLSX file.
// Rows run through the same resolver as live entry, so rounds and identity
// keys are recomputed; serials already registered are skipped.
func main() {
	file := flag.String("file", "", "CSV or XLSX file laid out like the job report export")
	user := flag.String("user", "import", "username recorded when the Create By column is empty")
	dryRun := flag.Bool("dry-run", false, "parse the file and report rows without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init("import_jobs", cfg.Log.Level, cfg.Log.Format)

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}
	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open import file")
	}
	rows, err := report.ReadImport(filepath.Base(*file), f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read import file")
	}
	log.Info().Int("rows", len(rows)).Str("file", *file).Msg("import file parsed")
	if *dryRun {
		return
	}

	os.Exit(run(cfg, rows, *user))
}

// run imports rows and returns the process exit code. Deferred cleanup,
// including stopping embedded PostgreSQL, happens before main exits.
func run(cfg *config.Config, rows []report.ImportRow, fallbackUser string) int {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("database close error")
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Error().Err(err).Msg("schema migration failed")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	service := jobs.NewService(
		jobs.NewGormStore(db.DB),
		[]jobs.ResolverOption{jobs.WithLinearChains(cfg.Jobs.LinearChains)},
		jobs.WithProducts(catalog.NewStore(db.DB)),
	)

	var created, skipped, failed int
	for _, row := range rows {
		if ctx.Err() != nil {
			log.Warn().Msg("import interrupted")
			break
		}
		actor := jobs.Actor{Username: row.CreatedBy, Role: models.RoleUser}
		if actor.Username == "" {
			actor.Username = fallbackUser
		}

		res, err := service.Create(ctx, actor, row.Input)
		switch {
		case jobs.IsSerialConflict(err):
			skipped++
			log.Debug().Int("line", row.Line).Str("serial", row.Input.SerialNumber).Msg("serial already registered, skipped")
		case err != nil:
			failed++
			log.Error().Err(err).Int("line", row.Line).Str("serial", row.Input.SerialNumber).Msg("row rejected")
		default:
			created++
			log.Debug().Int("line", row.Line).Str("serial", row.Input.SerialNumber).Int("round", res.RoundNumber).Msg("job imported")
		}
	}

	log.Info().Int("created", created).Int("skipped", skipped).Int("failed", failed).Msg("import finished")
	if failed > 0 {
		return 1
	}
	return 0
}
