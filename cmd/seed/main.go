// Command seed fills the configured record store with demo users and hazard
// reports scattered around a city centre. It goes through the hazard service,
// so seeded data has the same shape as data created over the API.
//
// Usage:
//
//	STORE_BACKEND=file STORE_DIR=data go run ./cmd/seed -users 5 -reports 40
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/civix-hazard-service/internal/config"
	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/couchcryptid/civix-hazard-service/internal/idgen"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

var (
	severities = []string{"LOW", "MEDIUM", "HIGH"}
	depths     = []string{"ANKLE", "KNEE", "WAIST", "UNKNOWN"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	users := flag.Int("users", 5, "number of demo users to register")
	reports := flag.Int("reports", 40, "number of reports to create")
	lat := flag.Float64("lat", 23.0225, "centre latitude")
	lng := flag.Float64("lng", 72.5714, "centre longitude")
	spread := flag.Float64("spread", 5000, "maximum distance from the centre in meters")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *users < 1 || *reports < 0 {
		flag.Usage()
		return fmt.Errorf("-users must be at least 1 and -reports non-negative")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "civix-seed")

	ctx := context.Background()
	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		DatabaseURL: cfg.DatabaseURL,
		MongoURI:    cfg.MongoURI,
		MongoDB:     cfg.MongoDB,
	})
	if err != nil {
		return err
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}
	ids, err := idgen.New(cfg.SnowflakeID)
	if err != nil {
		return err
	}
	svc := hazard.NewService(st, ids, idgen.NewUserID, logger, observability.NewMetricsForTesting())

	rng := rand.New(rand.NewPCG(*seed, *seed))

	userIDs := make([]string, 0, *users)
	for i := range *users {
		u, _, err := svc.Register(ctx, hazard.RegisterInput{
			DeviceID: fmt.Sprintf("seed-device-%03d", i+1),
			Name:     fmt.Sprintf("Demo User %d", i+1),
		})
		if err != nil {
			return fmt.Errorf("register user %d: %w", i+1, err)
		}
		userIDs = append(userIDs, u.UserID)
	}

	for i := range *reports {
		pLat, pLng := scatter(rng, *lat, *lng, *spread)
		_, err := svc.CreateReport(ctx, userIDs[rng.IntN(len(userIDs))], hazard.CreateReportInput{
			Latitude:    &pLat,
			Longitude:   &pLng,
			Severity:    severities[rng.IntN(len(severities))],
			Depth:       depths[rng.IntN(len(depths))],
			Description: fmt.Sprintf("Seeded report %d", i+1),
		})
		if err != nil {
			return fmt.Errorf("create report %d: %w", i+1, err)
		}
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	log.Printf("seeded %d users and %d reports; store now holds %d reports from %d users",
		*users, *reports, stats.TotalReports, stats.TotalUsers)
	return nil
}

// scatter returns a uniformly distributed point within radius meters of the centre.
func scatter(rng *rand.Rand, lat, lng, radius float64) (float64, float64) {
	d := radius * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	dLat := d * math.Cos(theta) / domain.EarthRadiusMeters
	dLng := d * math.Sin(theta) / (domain.EarthRadiusMeters * math.Cos(lat*math.Pi/180))
	return lat + dLat*180/math.Pi, lng + dLng*180/math.Pi
}
