// Command seed loads the development fixtures: the branch network, one
// platform admin and an agent and viewer account per branch. Safe to run
// repeatedly; existing rows are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"intia/internal/access"
	branchmodels "intia/internal/branch/models"
	branchstore "intia/internal/branch/store"
	"intia/internal/platform/config"
	"intia/internal/platform/logger"
	"intia/internal/platform/postgres"
	usermodels "intia/internal/user/models"
	userstore "intia/internal/user/store"
	"intia/pkg/domain"
	"intia/pkg/platform/sentinel"
)

type branchSeed struct {
	Code    string
	Name    string
	Address string
	Phone   string
}

var branchSeeds = []branchSeed{
	{Code: "YAO001", Name: "Yaoundé Centre", Address: "Avenue Kennedy, Yaoundé", Phone: "+237 222 22 10 01"},
	{Code: "DOU001", Name: "Douala Akwa", Address: "Boulevard de la Liberté, Douala", Phone: "+237 233 42 10 02"},
	{Code: "BAF001", Name: "Bafoussam", Address: "Rue du Marché A, Bafoussam", Phone: "+237 233 44 10 03"},
	{Code: "GAR001", Name: "Garoua", Address: "Avenue des Banques, Garoua", Phone: "+237 222 27 10 04"},
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	branches := branchstore.NewPostgres(db)
	users := userstore.NewPostgres(db)

	now := time.Now().UTC()

	seeded := make(map[string]*branchmodels.Branch, len(branchSeeds))
	for _, seed := range branchSeeds {
		branch, err := ensureBranch(ctx, branches, seed, now)
		if err != nil {
			log.Error("failed to seed branch", "code", seed.Code, "error", err)
			os.Exit(1)
		}
		seeded[seed.Code] = branch
	}

	if err := ensureUser(ctx, users, "admin", access.RoleAdmin, nil, now); err != nil {
		log.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}
	for code, branch := range seeded {
		suffix := strings.ToLower(strings.TrimRight(code, "0123456789"))
		for username, role := range map[string]access.Role{
			"agent_" + suffix:  access.RoleAgent,
			"viewer_" + suffix: access.RoleViewer,
		} {
			if err := ensureUser(ctx, users, username, role, &branch.ID, now); err != nil {
				log.Error("failed to seed user", "username", username, "error", err)
				os.Exit(1)
			}
		}
	}

	log.Info("seed complete", "branches", len(seeded))
}

func ensureBranch(ctx context.Context, store *branchstore.Postgres, seed branchSeed, now time.Time) (*branchmodels.Branch, error) {
	existing, err := store.FindByCode(ctx, seed.Code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	branch := &branchmodels.Branch{
		ID:        domain.NewBranchID(),
		Name:      seed.Name,
		Code:      seed.Code,
		Address:   seed.Address,
		Phone:     seed.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func ensureUser(ctx context.Context, store *userstore.Postgres, username string, role access.Role, branchID *domain.BranchID, now time.Time) error {
	if _, err := store.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	// Development password follows the username; override the hashes before
	// pointing this at anything shared.
	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pass"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := usermodels.NewUser(domain.NewUserID(), username, username+"@intia.example", string(hash), role, branchID, now)
	if err != nil {
		return err
	}
	return store.Create(ctx, user)
}
