package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/async"
	"github.com/ozxin/nx-admin/pkg/rbac"
)

// bulkTimeout bounds each call of a multi-id command
const bulkTimeout = 10 * time.Second

func newUsersCommand(a *App) *Command {
	return newGroup("users", "Manage admin accounts", rbac.One("admin.user"),
		newUsersListCommand(a),
		newUsersShowCommand(a),
		newUsersSaveCommand(a),
		newUsersResetPasswordCommand(a),
		newUsersDeleteCommand(a),
		newUsersTypesCommand(a),
	)
}

func newUsersListCommand(a *App) *Command {
	cmd := newCommand("list", "List accounts")
	page := cmd.Flags.Int("page", 1, "Page number")
	limit := cmd.Flags.Int("limit", 20, "Page size")

	cmd.Run = func(ctx context.Context, args []string) error {
		result, err := a.API.Users.List(ctx, *page, *limit)
		if err != nil {
			return err
		}

		t := newTable(a.Out, "ID", "USERNAME", "NICKNAME", "TYPE", "STATUS", "ROLE")
		for _, u := range result.Data {
			t.row(u.ID, u.Username, u.Nickname, u.Genre, u.Status, u.RoleID)
		}
		if err := t.flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "total %d, page %d\n", result.Total, result.Page.Current)
		return nil
	}
	return cmd
}

func newUsersShowCommand(a *App) *Command {
	cmd := newCommand("show", "Show an account")
	cmd.Args = "<id>"
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("exactly one id is required")
		}
		user, err := a.API.Users.Read(ctx, api.ObjectID(args[0]))
		if err != nil {
			return err
		}
		return printJSON(a.Out, user)
	}
	return cmd
}

func newUsersSaveCommand(a *App) *Command {
	cmd := newCommand("save", "Create an account, or update it when -id is set")
	cmd.Args = "<json>"
	id := cmd.Flags.String("id", "", "Account id to update")

	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("the account JSON is required")
		}
		data, err := parseJSONArg(args[0])
		if err != nil {
			return err
		}
		result, err := a.API.Users.Save(ctx, api.ObjectID(*id), data)
		if err != nil {
			return err
		}
		return printJSON(a.Out, result)
	}
	return cmd
}

func newUsersResetPasswordCommand(a *App) *Command {
	cmd := newCommand("reset-password", "Set a new password for an account")
	cmd.Args = "<id>"
	password := cmd.Flags.String("password", "", "New password")

	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 || *password == "" {
			return fmt.Errorf("an id and -password are required")
		}
		if err := a.API.Users.ResetPassword(ctx, api.ObjectID(args[0]), *password); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Password reset for %s\n", args[0])
		return nil
	}
	return cmd
}

func newUsersDeleteCommand(a *App) *Command {
	cmd := newCommand("delete", "Delete accounts")
	cmd.Args = "<id>..."
	cmd.Run = func(ctx context.Context, args []string) error {
		return deleteAll(ctx, a, "account", args, a.API.Users.Delete)
	}
	return cmd
}

func newUsersTypesCommand(a *App) *Command {
	cmd := newCommand("types", "List account types")
	cmd.Run = func(ctx context.Context, args []string) error {
		t := newTable(a.Out, "VALUE", "LABEL")
		for _, option := range api.UserTypes() {
			t.row(int(option.Value), option.Label)
		}
		return t.flush()
	}
	return cmd
}

// deleteAll removes every id concurrently and reports each outcome
func deleteAll(ctx context.Context, a *App, kind string, args []string,
	del func(context.Context, api.ObjectID) error) error {

	if len(args) == 0 {
		return fmt.Errorf("at least one id is required")
	}
	ids := make([]api.ObjectID, len(args))
	for i, arg := range args {
		ids[i] = api.ObjectID(arg)
	}

	errs := async.Batch(ctx, ids, 0, bulkTimeout, del)
	for i, err := range errs {
		if err == nil {
			fmt.Fprintf(a.Out, "Deleted %s %s\n", kind, ids[i])
		}
	}
	if n := async.Failed(errs); n > 0 {
		return fmt.Errorf("%d of %d deletes failed: %w", n, len(ids), async.Join(errs))
	}
	return nil
}
