// Command rbacctl provisions and maintains the authorization schema: it
// applies migrations, seeds the permission catalog and built-in roles,
// converts legacy user roles and grants superadmin by email.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frontendmu/frontend.mu/pkg/ability"
	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/config"
	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/observability"
	"github.com/frontendmu/frontend.mu/pkg/rbac"
	"github.com/frontendmu/frontend.mu/pkg/rsvp"
	"github.com/frontendmu/frontend.mu/pkg/storage/postgres"
)

const usage = `Usage: rbacctl [flags] <command> [args]

Commands:
  migrate                 apply rbac, events and rsvp migrations
  seed                    provision the permission catalog and built-in roles
  migrate-legacy          convert users.role into role assignments
  make-superadmin <email> grant the superadmin role to a user
  verify                  check the ability mapping against stored permissions

Flags:
`

func main() {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall command timeout")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := setupLogger(*logLevel)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	conn, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		Driver:      cfg.Database.Driver,
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	appLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)

	cmd := &command{
		conn:   conn,
		logger: logger,
		app:    appLogger,
	}
	if err := cmd.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
}

type command struct {
	conn   *postgres.ConnectionManager
	logger *logrus.Logger
	app    *observability.Logger
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	db := c.conn.DB()

	// Every subcommand except migrate writes to the audit trail, which needs
	// the schema in place.
	if name != "migrate" {
		dbAudit, err := audit.NewDBLogger(ctx, db)
		if err != nil {
			return err
		}
		auditLogger := audit.NewMultiLogger(dbAudit, audit.NewLogLogger(c.app))
		defer auditLogger.Close()
		ctx = audit.WithLogger(ctx, auditLogger)
	}

	admin := rbac.NewAdmin(rbac.NewStore(db), nil, nil, c.app)
	users := auth.NewUserStore(db)

	switch name {
	case "migrate":
		return c.migrate(ctx)

	case "seed":
		result, err := admin.Seed(ctx)
		if err != nil {
			return err
		}
		c.logger.WithFields(logrus.Fields{
			"permissions": result.Permissions,
			"roles":       result.Roles,
		}).Info("Catalog provisioned")
		return nil

	case "migrate-legacy":
		result, err := admin.MigrateLegacyRoles(ctx, users)
		if err != nil {
			return err
		}
		c.logger.WithFields(logrus.Fields{
			"migrated": result.Migrated,
			"skipped":  result.Skipped,
		}).Info("Legacy roles migrated")
		for _, value := range result.Unmapped {
			c.logger.Warnf("Legacy role %q has no mapping and was converted to %s", value, rbac.RoleMember)
		}
		return nil

	case "make-superadmin":
		if len(args) != 1 {
			return fmt.Errorf("make-superadmin takes exactly one email argument")
		}
		user, assigned, err := admin.MakeSuperadmin(ctx, users, args[0])
		if err != nil {
			return err
		}
		if !assigned {
			c.logger.Infof("%s is already a superadmin", user.Email)
			return nil
		}
		c.logger.Infof("%s is now a superadmin", user.Email)
		return nil

	case "verify":
		if err := ability.VerifyStore(ctx, rbac.NewStore(db)); err != nil {
			return err
		}
		c.logger.Infof("All %d mapped permissions exist", len(ability.Mappings()))
		return nil

	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *command) migrate(ctx context.Context) error {
	db := c.conn.DB()
	for _, component := range []struct {
		name       string
		migrations []postgres.Migration
	}{
		{"rbac", rbac.Migrations()},
		{"events", events.Migrations()},
		{"rsvp", rsvp.Migrations()},
	} {
		if err := postgres.Migrate(ctx, db, component.name, component.migrations, c.app); err != nil {
			return err
		}
		c.logger.WithField("component", component.name).Info("Migrations applied")
	}

	if _, err := audit.NewDBLogger(ctx, db); err != nil {
		return err
	}
	c.logger.Info("Audit table ready")
	return nil
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
