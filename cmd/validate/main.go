// Command validate checks the integrity of the record store: id uniqueness,
// coordinate ranges, report lifetimes, vote tallies, and references between
// reports, votes, and users. It reads the store named by the usual
// environment variables and never writes to it.
//
// Usage:
//
//	STORE_BACKEND=file STORE_DIR=data go run ./cmd/validate
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/config"
	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
	"github.com/joho/godotenv"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	strict := flag.Bool("strict", false, "treat warnings as failures")
	flag.Parse()

	_ = godotenv.Load()
	os.Exit(run(*strict))
}

func run(strict bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		DatabaseURL: cfg.DatabaseURL,
		MongoURI:    cfg.MongoURI,
		MongoDB:     cfg.MongoDB,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open store: %v\n", err)
		return 1
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	reports, err := store.LoadAll[domain.Report](ctx, st, domain.CollectionReports)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports: %v\n", err)
		return 1
	}
	users, err := store.LoadAll[domain.User](ctx, st, domain.CollectionUsers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load users: %v\n", err)
		return 1
	}
	votes, err := store.LoadAll[domain.Vote](ctx, st, domain.CollectionVotes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load votes: %v\n", err)
		return 1
	}

	fmt.Println("=== Civix Store Integrity Validation ===")
	fmt.Printf("Backend: %s\n\n", cfg.StoreBackend)

	phases := validate(reports, users, votes, time.Now())

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		failed := !p.passed() || (strict && len(p.warnings) > 0)
		if failed {
			status = fmt.Sprintf("\033[31mFAIL (%d errors, %d warnings)\033[0m", len(p.errors), len(p.warnings))
			allPassed = false
		} else if len(p.warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Printf("  %-36s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d reports, %d users, %d votes\n", len(reports), len(users), len(votes))

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [E%d] %s\n", i+1, e)
		}
		for i, w := range p.warnings {
			fmt.Printf("  [W%d] %s\n", i+1, w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(reports []domain.Report, users []domain.User, votes []domain.Vote, now time.Time) []*phase {
	return []*phase{
		validateReports(reports, now),
		validateUsers(users),
		validateVotes(votes, reports),
		validateOwnership(reports, users),
	}
}

func validateReports(reports []domain.Report, now time.Time) *phase {
	p := &phase{name: "Reports"}
	seen := make(map[int64]bool, len(reports))
	expired := 0
	for _, r := range reports {
		if seen[r.ID] {
			p.errorf("duplicate report id %d", r.ID)
		}
		seen[r.ID] = true

		if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
			p.errorf("report %d: coordinates out of range (%v, %v)", r.ID, r.Latitude, r.Longitude)
		}
		if r.Latitude == 0 || r.Longitude == 0 {
			p.warnf("report %d: zero coordinate (%v, %v)", r.ID, r.Latitude, r.Longitude)
		}
		if r.Severity == "" {
			p.errorf("report %d: empty severity", r.ID)
		}
		if r.UserID == "" {
			p.errorf("report %d: missing owner", r.ID)
		}
		if !r.ExpiresAt.After(r.CreatedAt) {
			p.errorf("report %d: expiresAt %s not after createdAt %s", r.ID,
				r.ExpiresAt.Format(time.RFC3339), r.CreatedAt.Format(time.RFC3339))
		}
		lifetime := r.ExpiresAt.Sub(r.CreatedAt)
		if r.VerifiedAt == nil && lifetime != domain.ReportTTL {
			p.warnf("report %d: unverified lifetime %s, want %s", r.ID, lifetime, domain.ReportTTL)
		}
		if r.VerifiedAt != nil && r.ExpiresAt.Sub(*r.VerifiedAt) != domain.VerifiedTTL {
			p.warnf("report %d: verified lifetime %s, want %s", r.ID, r.ExpiresAt.Sub(*r.VerifiedAt), domain.VerifiedTTL)
		}
		if r.Expired(now) {
			expired++
		}
	}
	if expired > 0 {
		p.warnf("%d expired reports awaiting pruning", expired)
	}
	return p
}

func validateUsers(users []domain.User) *phase {
	p := &phase{name: "Users"}
	ids := make(map[string]bool, len(users))
	devices := make(map[string]string, len(users))
	for _, u := range users {
		if u.UserID == "" {
			p.errorf("user with empty id (device %q)", u.DeviceID)
			continue
		}
		if ids[u.UserID] {
			p.errorf("duplicate user id %s", u.UserID)
		}
		ids[u.UserID] = true

		if u.DeviceID == "" {
			p.errorf("user %s: empty device id", u.UserID)
			continue
		}
		if other, ok := devices[u.DeviceID]; ok {
			p.errorf("device %q registered to both %s and %s", u.DeviceID, other, u.UserID)
		}
		devices[u.DeviceID] = u.UserID
	}
	return p
}

func validateVotes(votes []domain.Vote, reports []domain.Report) *phase {
	p := &phase{name: "Votes"}
	tally := make(map[int64]int)
	keys := make(map[string]bool, len(votes))
	for _, v := range votes {
		if v.Vote != 1 && v.Vote != -1 {
			p.errorf("vote %s: value %d", v.Key, v.Vote)
		}
		if v.Key != domain.VoteKey(v.UserID, v.ReportID) {
			p.errorf("vote %s: key does not match user %s and report %d", v.Key, v.UserID, v.ReportID)
		}
		if keys[v.Key] {
			p.errorf("duplicate vote key %s", v.Key)
		}
		keys[v.Key] = true
		tally[v.ReportID] += v.Vote
	}

	known := make(map[int64]bool, len(reports))
	for _, r := range reports {
		known[r.ID] = true
		if tally[r.ID] != r.Votes {
			p.errorf("report %d: net votes %d, vote records sum to %d", r.ID, r.Votes, tally[r.ID])
		}
	}
	orphans := 0
	for id := range tally {
		if !known[id] {
			orphans++
		}
	}
	if orphans > 0 {
		p.warnf("votes reference %d reports no longer in the store", orphans)
	}
	return p
}

func validateOwnership(reports []domain.Report, users []domain.User) *phase {
	p := &phase{name: "Ownership"}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.UserID] = true
	}
	for _, r := range reports {
		if r.UserID != "" && !known[r.UserID] {
			p.warnf("report %d: owner %s is not a registered user", r.ID, r.UserID)
		}
	}
	return p
}
