// Command reconcile recomputes every fund balance from its posting history
// and places mismatching funds on integrity hold. It exits non-zero when any
// fund does not match, so it can run from cron or a CI job.
package main

import (
	"context"
	"fmt"
	"os"

	"treasury/internal/authz"
	"treasury/internal/config"
	"treasury/internal/database"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	mismatches, err := run()
	if err != nil {
		logger.Get().Fatalf("Reconciliation error: %v", err)
	}
	if mismatches > 0 {
		logger.Sync()
		os.Exit(2)
	}
}

func run() (int, error) {
	log := logger.Named("reconcile")

	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	ctx := context.Background()
	db := dbManager.DB()

	policy, err := services.NewPermissionService(db).LoadPolicy(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load permission policy: %w", err)
	}
	audit := services.NewAuditService(db, policy)
	ledger := services.NewLedgerService(db, policy, audit)

	results, err := ledger.ReconcileAll(ctx, authz.System(models.RoleAdmin))
	if err != nil {
		return 0, err
	}

	mismatches := 0
	for _, r := range results {
		if r.Matches {
			log.Infow("fund balanced", "fund_id", r.FundID, "fund_name", r.FundName,
				"balance", r.StoredBalance, "postings", r.PostingCount)
			continue
		}
		mismatches++
		log.Warnw("fund out of balance", "fund_id", r.FundID, "fund_name", r.FundName,
			"stored", r.StoredBalance, "computed", r.ComputedBalance, "difference", r.Difference)
	}
	log.Infof("Reconciled %d fund(s), %d mismatch(es)", len(results), mismatches)
	return mismatches, nil
}
