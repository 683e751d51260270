package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/branchvault/internal/model"
)

// ErrNoRoles is returned when a branch has no roles to connect with.
var ErrNoRoles = errors.New("branch has no roles")

// Catalog is the slice of the catalog API the discoverer needs.
type Catalog interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListBranches(ctx context.Context, projectID string) ([]model.Branch, error)
	ListRoles(ctx context.Context, projectID, branchID string) ([]model.Role, error)
	ListDatabases(ctx context.Context, projectID, branchID string) ([]model.Database, error)
	ConnectionURI(ctx context.Context, projectID, branchID, database, role string) (string, error)
}

// Discoverer enumerates all (project, branch) pairs, filters them by recent
// activity and resolves a connection credential for each survivor.
type Discoverer struct {
	catalog     Catalog
	logger      zerolog.Logger
	lookback    time.Duration
	preferredDB string
	now         func() time.Time
}

func NewDiscoverer(catalog Catalog, logger zerolog.Logger, lookbackDays int, preferredDB string) *Discoverer {
	return &Discoverer{
		catalog:     catalog,
		logger:      logger.With().Str("component", "discoverer").Logger(),
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		preferredDB: preferredDB,
		now:         time.Now,
	}
}

// DiscoverActiveResources walks every branch of every project. Failure
// isolation: a branch-listing error skips only that project, a connection
// resolution error drops only that branch, an unparseable activity timestamp
// keeps the branch in (assume active). Only a ListProjects error is fatal.
// Output order is the catalog's project-then-branch enumeration order.
func (d *Discoverer) DiscoverActiveResources(ctx context.Context) ([]model.ActiveResource, error) {
	projects, err := d.catalog.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover projects: %w", err)
	}

	now := d.now()
	cutoff := now.Add(-d.lookback)

	var resources []model.ActiveResource
	for _, project := range projects {
		branches, err := d.catalog.ListBranches(ctx, project.ID)
		if err != nil {
			d.logger.Error().Err(err).
				Str("project_id", project.ID).
				Str("project_name", project.Name).
				Msg("listing branches failed, skipping project")
			continue
		}

		for _, branch := range branches {
			res := model.ActiveResource{
				ProjectID:   project.ID,
				ProjectName: project.Name,
				BranchID:    branch.ID,
				BranchName:  branch.Name,
			}

			updated, err := parseBranchTime(branch.UpdatedAt)
			switch {
			case err != nil:
				// Activity check failed: assume active rather than skip.
				d.logger.Warn().Err(err).
					Str("branch", branch.Name).
					Str("updated_at", branch.UpdatedAt).
					Msg("cannot determine branch activity, assuming active")
			case updated.Before(cutoff):
				d.logger.Debug().
					Str("branch", branch.Name).
					Time("updated_at", updated).
					Msg("branch inactive, skipping")
				continue
			default:
				res.RecentActivity = true
				res.LastActivity = updated
			}

			uri, err := d.resolveConnection(ctx, project.ID, branch.ID)
			if err != nil {
				d.logger.Error().Err(err).
					Str("project", project.Name).
					Str("branch", branch.Name).
					Msg("connection resolution failed, dropping branch")
				continue
			}
			res.ConnectionURI = uri

			d.logger.Info().
				Str("project", project.Name).
				Str("branch", branch.Name).
				Msg("branch selected for backup")
			resources = append(resources, res)
		}
	}

	return resources, nil
}

// resolveConnection picks the first role (the catalog returns the owner role
// first) and the preferred database if the branch has it, else the first one.
func (d *Discoverer) resolveConnection(ctx context.Context, projectID, branchID string) (string, error) {
	roles, err := d.catalog.ListRoles(ctx, projectID, branchID)
	if err != nil {
		return "", fmt.Errorf("list roles: %w", err)
	}
	if len(roles) == 0 {
		return "", fmt.Errorf("branch %s: %w", branchID, ErrNoRoles)
	}
	role := roles[0].Name

	databases, err := d.catalog.ListDatabases(ctx, projectID, branchID)
	if err != nil {
		return "", fmt.Errorf("list databases: %w", err)
	}
	if len(databases) == 0 {
		return "", fmt.Errorf("branch %s has no databases", branchID)
	}
	database := databases[0].Name
	for _, db := range databases {
		if db.Name == d.preferredDB {
			database = db.Name
			break
		}
	}

	uri, err := d.catalog.ConnectionURI(ctx, projectID, branchID, database, role)
	if err != nil {
		return "", err
	}
	if uri == "" {
		return "", fmt.Errorf("catalog returned empty connection uri for branch %s", branchID)
	}
	return uri, nil
}
