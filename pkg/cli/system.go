package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ozxin/nx-admin/pkg/rbac"
)

func newSystemCommand(a *App) *Command {
	return newGroup("system", "Inspect and maintain the server",
		rbac.AnyOf("system.config", "system.cache", "system.info", "system.database"),
		newSystemConfigCommand(a),
		newSystemResetCacheCommand(a),
		newSystemInfoCommand(a),
		newSystemDatabaseCommand(a),
		newSystemOverviewCommand(a),
	)
}

func newSystemConfigCommand(a *App) *Command {
	cmd := newCommand("config", "Show the public system settings")
	cmd.Auth = rbac.One("system.config")
	cmd.Run = func(ctx context.Context, args []string) error {
		settings, err := a.Settings.Load(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.Out, settings)
	}
	return cmd
}

func newSystemResetCacheCommand(a *App) *Command {
	cmd := newCommand("reset-cache", "Clear the server caches")
	cmd.Auth = rbac.One("system.cache")
	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.System.ResetCache(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newSystemInfoCommand(a *App) *Command {
	cmd := newCommand("info", "Show host information")
	cmd.Auth = rbac.One("system.info")
	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.System.SystemInfo(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newSystemDatabaseCommand(a *App) *Command {
	cmd := newCommand("database", "Show database information")
	cmd.Auth = rbac.One("system.database")
	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.System.Database(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newSystemOverviewCommand(a *App) *Command {
	cmd := newCommand("overview", "Show host and database information together")
	cmd.Auth = rbac.AnyOf("system.info", "system.database")
	cmd.Run = func(ctx context.Context, args []string) error {
		var info, database json.RawMessage

		g, ctx := errgroup.WithContext(ctx)
		if a.Session.AllowAccess(rbac.One("system.info")) {
			g.Go(func() error {
				var err error
				info, err = a.API.System.SystemInfo(ctx)
				return err
			})
		}
		if a.Session.AllowAccess(rbac.One("system.database")) {
			g.Go(func() error {
				var err error
				database, err = a.API.System.Database(ctx)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to load overview: %w", err)
		}

		overview := map[string]json.RawMessage{}
		if info != nil {
			overview["info"] = info
		}
		if database != nil {
			overview["database"] = database
		}
		return printJSON(a.Out, overview)
	}
	return cmd
}
