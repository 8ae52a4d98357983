package main

import (
	"context"
	"errors"
	"flag"

	"github.com/rs/zerolog/log"
	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/logging"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/traffic"
	"github.com/xelth-com/eckclaims/internal/users"
)

var demoProducts = []models.ProductMaster{
	{OID: 1001, ProductCode: "PHN-A52", BrandName: "Samsung", ProductName: "Galaxy A52 128GB"},
	{OID: 1002, ProductCode: "PHN-IP13", BrandName: "Apple", ProductName: "iPhone 13 128GB"},
	{OID: 1003, ProductCode: "TAB-M10", BrandName: "Lenovo", ProductName: "Tab M10 HD"},
	{OID: 1004, ProductCode: "WCH-GT3", BrandName: "Huawei", ProductName: "Watch GT 3"},
	{OID: 1005, ProductCode: "EAR-BUDS2", BrandName: "Samsung", ProductName: "Galaxy Buds2"},
}

var demoUsers = []users.SignupInput{
	{Username: "admin", Password: "admin123", FirstName: "Demo", LastName: "Admin", Role: models.RoleAdmin},
	{Username: "clerk", Password: "clerk123", FirstName: "Demo", LastName: "Clerk", Role: models.RoleUser},
}

// one unit replaced twice, plus two unrelated claims
var demoJobs = []jobs.CreateInput{
	{SerialNumber: "R58N100001", ProductCode: "PHN-A52", Supplier: "Central Distribution", JobNo: "J-24001",
		Condition: "No power", ReceivedDate: "2024-01-08"},
	{SerialNumber: "R58N100777", ReplaceSerial: "R58N100001", ProductCode: "PHN-A52", Supplier: "Central Distribution",
		JobNo: "J-24017", Condition: "Screen flicker", ReceivedDate: "2024-02-19", DateReceipt: "2024-02-26"},
	{SerialNumber: "R58N101234", ReplaceSerial: "R58N100777", ProductCode: "PHN-A52", Supplier: "Central Distribution",
		JobNo: "J-24052", Remark: "Customer requested refund after third failure", ReceivedDate: "2024-04-02"},
	{SerialNumber: "F2LXK0QJ", ProductCode: "PHN-IP13", Supplier: "North Retail", JobNo: "J-24020",
		Condition: "Battery swelling", ReceivedDate: "2024-02-22"},
	{SerialNumber: "HGA9Z55", ProductCode: "TAB-M10", Supplier: "North Retail", JobNo: "J-24033", ReceivedDate: "2024-03-05"},
}

func main() {
	reset := flag.Bool("reset-catalog", false, "replace the product catalog even when it already has rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init("seed_demo", cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	ctx := context.Background()

	// 1. Catalog
	products := catalog.NewStore(db.DB)
	count, err := products.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count products")
	}
	if count > 0 && !*reset {
		log.Warn().Int64("products", count).Msg("catalog not empty, keeping it (use -reset-catalog to replace)")
	} else {
		n, err := products.ReplaceAll(ctx, demoProducts)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed catalog")
		}
		log.Info().Int("products", n).Msg("catalog seeded")
	}

	// 2. Accounts
	accounts := users.NewStore(db.DB)
	for _, u := range demoUsers {
		_, err := accounts.Signup(ctx, u, true)
		switch {
		case errors.Is(err, users.ErrUsernameTaken):
			log.Info().Str("username", u.Username).Msg("user exists, skipped")
		case err != nil:
			log.Fatal().Err(err).Str("username", u.Username).Msg("failed to create user")
		default:
			log.Info().Str("username", u.Username).Str("role", u.Role).Msg("user created")
		}
	}

	// 3. Jobs, through the resolver so the chain gets one identity key
	service := jobs.NewService(jobs.NewGormStore(db.DB), nil, jobs.WithProducts(products))
	clerk := jobs.Actor{Username: "clerk", Role: models.RoleUser}
	for _, in := range demoJobs {
		res, err := service.Create(ctx, clerk, in)
		switch {
		case jobs.IsSerialConflict(err):
			log.Info().Str("serial", in.SerialNumber).Msg("job exists, skipped")
		case err != nil:
			log.Fatal().Err(err).Str("serial", in.SerialNumber).Msg("failed to create job")
		default:
			log.Info().Str("serial", in.SerialNumber).Int("round", res.RoundNumber).
				Str("identity_key", res.IdentityKey).Msg("job created")
		}
	}

	// 4. Branch traffic
	visits := traffic.NewStore(db.DB)
	rec := models.TrafficRecord{BU: "Retail", Branch: "Central Mall", Name: "Demo Counter",
		Quarter: "Q1", Week: "W10", Traffic: 142, SerialNo: "TRF-DEMO-0001", CreatedBy: "clerk"}
	if err := visits.Create(ctx, &rec); err != nil && !errors.Is(err, traffic.ErrSerialInUse) {
		log.Fatal().Err(err).Msg("failed to create traffic record")
	}

	log.Info().Msg("demo data ready")
}
