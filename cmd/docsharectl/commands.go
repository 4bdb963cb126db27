package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/config"
	"docshare/internal/database"
	"docshare/internal/database/migration"
	"docshare/internal/model"
	"docshare/internal/reconcile"
	"docshare/internal/repository"
	"docshare/internal/repository/postgres"
	"docshare/internal/storage"
)

func rootCommand(cfg *config.AppConfig, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "docsharectl",
		Usage: "operator tasks for the document sharing service",
		Commands: []*cli.Command{
			migrateCommand(cfg, log),
			allowEmailCommand(cfg, log),
			promoteCommand(cfg, log),
			reconcileCommand(cfg, log),
		},
	}
}

func openDB(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func migrateCommand(cfg *config.AppConfig, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending schema migrations",
		Action: func(ctx context.Context, _ *cli.Command) error {
			db, err := openDB(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := migration.Run(ctx, db, log, cfg.Database.Host)
			if err != nil {
				return err
			}
			log.WithField("applied", n).Info("migrations complete")
			return nil
		},
	}
}

func allowEmailCommand(cfg *config.AppConfig, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "allow-email",
		Usage: "add an email to the signup allowlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "address allowed to sign up",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openDB(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			return allowEmail(ctx, postgres.NewAuthorizedEmailPostgres(db), newRecorder(db, log), c.String("email"), log)
		},
	}
}

func allowEmail(ctx context.Context, repo repository.AuthorizedEmailRepository, rec audit.Recorder, email string, log logrus.FieldLogger) error {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}
	e, err := repo.Add(ctx, &model.AuthorizedEmail{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.WithField("email", auth.MaskEmail(email)).Info("email already authorized")
			return nil
		}
		return fmt.Errorf("add authorized email: %w", err)
	}
	rec.Record(ctx, audit.Event{
		Action:       audit.ActionAuthorizedEmailAdd,
		ResourceType: audit.ResourceAuthorizedEmail,
		ResourceID:   e.ID,
		Details:      map[string]any{"email": auth.MaskEmail(email), "via": "docsharectl"},
	})
	log.WithField("email", auth.MaskEmail(email)).Info("email authorized")
	return nil
}

func promoteCommand(cfg *config.AppConfig, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "set the role of an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "user or admin",
				Value: string(model.RoleAdmin),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openDB(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			return promote(ctx, postgres.NewProfilePostgres(db), newRecorder(db, log), c.String("email"), model.Role(c.String("role")), log)
		},
	}
}

// promote is the bootstrap path for the first admin, so it runs without a
// calling principal.
func promote(ctx context.Context, profiles repository.ProfileRepository, rec audit.Recorder, email string, role model.Role, log logrus.FieldLogger) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	p, err := profiles.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no account for %s", auth.MaskEmail(email))
		}
		return fmt.Errorf("find profile: %w", err)
	}
	if p.Role == role {
		log.WithField("user_id", p.ID).Info("role unchanged")
		return nil
	}
	if err := profiles.SetRole(ctx, p.ID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	rec.Record(ctx, audit.Event{
		Action:       audit.ActionRoleChange,
		ResourceType: audit.ResourceProfile,
		ResourceID:   p.ID,
		Details:      map[string]any{"from": string(p.Role), "to": string(role), "via": "docsharectl"},
	})
	log.WithFields(logrus.Fields{"user_id": p.ID, "role": role}).Info("role updated")
	return nil
}

func reconcileCommand(cfg *config.AppConfig, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "purge soft-deleted documents and expired rate-limit windows once",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch",
				Usage: "documents per pass",
				Value: int64(cfg.Reconcile.BatchSize),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openDB(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			store, err := storage.NewMinIO(ctx, cfg.MinIO)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}

			rc := reconcile.New(postgres.NewDocumentPostgres(db), store, postgres.NewRateLimitPostgres(db), int(c.Int("batch")), log)
			res, err := rc.RunOnce(ctx)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"purged": res.Purged,
				"failed": res.Failed,
				"pruned": res.Pruned,
			}).Info("reconcile complete")
			return nil
		},
	}
}

func newRecorder(db *sql.DB, log logrus.FieldLogger) audit.Recorder {
	return audit.NewLogger(postgres.NewAuditPostgres(db), log)
}
