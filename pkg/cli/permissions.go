package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/rbac"
)

func newPermissionsCommand(a *App) *Command {
	return newGroup("permissions", "Manage permissions", rbac.One("admin.permission"),
		newPermissionsTreeCommand(a),
		newPermissionsListCommand(a),
		newPermissionsShowCommand(a),
		newPermissionsSaveCommand(a),
		newPermissionsDeleteCommand(a),
		newPermissionsScanCommand(a),
		newPermissionsSaveItemsCommand(a),
		newPermissionsLeavesCommand(a),
	)
}

func newPermissionsTreeCommand(a *App) *Command {
	cmd := newCommand("tree", "Show the permission tree")
	cmd.Run = func(ctx context.Context, args []string) error {
		if err := a.Tree.Load(ctx); err != nil {
			return err
		}
		printTree(a, a.Tree.Tree(), 0)
		return nil
	}
	return cmd
}

func printTree(a *App, nodes []api.PermissionNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(a.Out, "%s%s  %s\n", strings.Repeat("  ", depth), n.Name, n.Title)
		printTree(a, n.Children, depth+1)
	}
}

func newPermissionsListCommand(a *App) *Command {
	cmd := newCommand("list", "List permissions")
	page := cmd.Flags.Int("page", 1, "Page number")
	limit := cmd.Flags.Int("limit", 50, "Page size")

	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.Permissions.List(ctx, *page, *limit)
		if err != nil {
			return err
		}

		t := newTable(a.Out, "NAME", "TITLE", "PARENT", "SORT", "VALID")
		for _, p := range result.Data {
			t.row(p.Name, p.Title, p.PID, p.Sort, p.Valid)
		}
		if err := t.flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "total %d, page %d\n", result.Total, result.Page.Current)
		return nil
	}
	return cmd
}

func newPermissionsShowCommand(a *App) *Command {
	cmd := newCommand("show", "Show a permission")
	cmd.Args = "<name>"
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("exactly one name is required")
		}
		result, err := a.API.Permissions.Read(ctx, api.ObjectID(args[0]))
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newPermissionsSaveCommand(a *App) *Command {
	cmd := newCommand("save", "Create a permission, or update it when -id is set")
	cmd.Args = "<json>"
	id := cmd.Flags.String("id", "", "Permission name to update")

	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("the permission JSON is required")
		}
		data, err := parseJSONArg(args[0])
		if err != nil {
			return err
		}
		result, err := a.API.Permissions.Save(ctx, api.ObjectID(*id), data)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newPermissionsDeleteCommand(a *App) *Command {
	cmd := newCommand("delete", "Delete permissions")
	cmd.Args = "<name>..."
	cmd.Run = func(ctx context.Context, args []string) error {
		return deleteAll(ctx, a, "permission", args, a.API.Permissions.Delete)
	}
	return cmd
}

func newPermissionsScanCommand(a *App) *Command {
	cmd := newCommand("scan", "Rescan the server for permissions")
	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.Permissions.Scan(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newPermissionsSaveItemsCommand(a *App) *Command {
	cmd := newCommand("save-items", `Save sort and description of many permissions, e.g. '{"admin.user":{"sort":"1","desc":"Users"}}'`)
	cmd.Args = "<json>"
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("the changes JSON is required")
		}
		var rows api.PermissionChanges
		if err := json.Unmarshal([]byte(args[0]), &rows); err != nil {
			return fmt.Errorf("invalid changes JSON: %w", err)
		}
		result, err := a.API.Permissions.SaveItems(ctx, rows)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newPermissionsLeavesCommand(a *App) *Command {
	cmd := newCommand("leaves", "Keep the leaf permissions among names")
	cmd.Args = "<name>..."
	cmd.Run = func(ctx context.Context, args []string) error {
		if err := a.Tree.Load(ctx); err != nil {
			return err
		}
		for _, name := range a.Tree.FilterLeafNodes(args) {
			fmt.Fprintln(a.Out, name)
		}
		return nil
	}
	return cmd
}
