package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/rbac"
)

func newRolesCommand(a *App) *Command {
	return newGroup("roles", "Manage roles", rbac.One("admin.role"),
		newRolesListCommand(a),
		newRolesSelectCommand(a),
		newRolesShowCommand(a),
		newRolesSaveCommand(a),
		newRolesDeleteCommand(a),
	)
}

func newRolesListCommand(a *App) *Command {
	cmd := newCommand("list", "List roles")
	page := cmd.Flags.Int("page", 1, "Page number")
	limit := cmd.Flags.Int("limit", 20, "Page size")

	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.Roles.List(ctx, *page, *limit)
		if err != nil {
			return err
		}

		t := newTable(a.Out, "ID", "NAME", "TITLE", "PERMISSIONS")
		for _, r := range result.Data {
			t.row(r.ID, r.Name, r.Title, strings.Join(r.Permission, ","))
		}
		if err := t.flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "total %d, page %d\n", result.Total, result.Page.Current)
		return nil
	}
	return cmd
}

func newRolesSelectCommand(a *App) *Command {
	cmd := newCommand("select", "List the role picker options")
	cmd.Run = func(ctx context.Context, args []string) error {
		options, err := a.Roles.Load(ctx)
		if err != nil {
			return err
		}
		t := newTable(a.Out, "VALUE", "LABEL", "TYPE")
		for _, o := range options {
			t.row(o.Value, o.Label, o.Type)
		}
		return t.flush()
	}
	return cmd
}

func newRolesShowCommand(a *App) *Command {
	cmd := newCommand("show", "Show a role")
	cmd.Args = "<id>"
	leaves := cmd.Flags.Bool("leaves", false, "Reduce the granted permissions to leaf permissions")

	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("exactly one id is required")
		}
		role, err := a.API.Roles.Read(ctx, api.ObjectID(args[0]))
		if err != nil {
			return err
		}
		if *leaves {
			if err := a.Tree.Load(ctx); err != nil {
				return err
			}
			role.Permission = a.Tree.FilterLeafNodes(role.Permission)
		}
		return printJSON(a.Out, role)
	}
	return cmd
}

func newRolesSaveCommand(a *App) *Command {
	cmd := newCommand("save", "Create a role, or update it when -id is set")
	cmd.Args = "<json>"
	id := cmd.Flags.String("id", "", "Role id to update")

	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("the role JSON is required")
		}
		data, err := parseJSONArg(args[0])
		if err != nil {
			return err
		}
		result, err := a.API.Roles.Save(ctx, api.ObjectID(*id), data)
		if err != nil {
			return err
		}
		a.Roles.Invalidate()
		return printJSON(a.Out, result)
	}
	return cmd
}

func newRolesDeleteCommand(a *App) *Command {
	cmd := newCommand("delete", "Delete roles")
	cmd.Args = "<id>..."
	cmd.Run = func(ctx context.Context, args []string) error {
		defer a.Roles.Invalidate()
		return deleteAll(ctx, a, "role", args, a.API.Roles.Delete)
	}
	return cmd
}
