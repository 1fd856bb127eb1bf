package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ozxin/nx-admin/pkg/rbac"
	"github.com/ozxin/nx-admin/pkg/router"
	"github.com/ozxin/nx-admin/pkg/secret"
	"github.com/ozxin/nx-admin/pkg/session"
)

func newLoginCommand(a *App) *Command {
	cmd := newCommand("login", "Sign in and load the session")
	username := cmd.Flags.String("username", "", "Account name")
	password := cmd.Flags.String("password", "", "Password")
	code := cmd.Flags.String("code", "", "Captcha code, see `nxadmin captcha`")

	cmd.Run = func(ctx context.Context, args []string) error {
		if *username == "" || *password == "" {
			return fmt.Errorf("username and password are required")
		}

		if err := a.Session.Login(ctx, session.LoginForm{
			Username: *username,
			Password: *password,
			Code:     *code,
		}); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		fmt.Fprintf(a.Out, "Logged in as %s (%s)\n", a.Session.Nickname(), a.Session.Username())
		return nil
	}
	return cmd
}

func newCaptchaCommand(a *App) *Command {
	cmd := newCommand("captcha", "Save the login captcha image")
	out := cmd.Flags.String("out", "captcha.png", "Output file")

	cmd.Run = func(ctx context.Context, args []string) error {
		captcha, err := a.API.Login.Captcha(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, captcha.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write captcha: %w", err)
		}
		fmt.Fprintf(a.Out, "Captcha saved to %s (%s, %d bytes)\n", *out, captcha.ContentType, len(captcha.Image))
		return nil
	}
	return cmd
}

func newLogoutCommand(a *App) *Command {
	cmd := newCommand("logout", "Sign out and clear the persisted session")
	cmd.Run = func(ctx context.Context, args []string) error {
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, "Logged out")
		return nil
	}
	return cmd
}

func newWhoamiCommand(a *App) *Command {
	cmd := newCommand("whoami", "Show the signed-in account and its grants")
	cmd.Login = true
	cmd.Run = func(ctx context.Context, args []string) error {
		user := a.Session.User()
		if user == nil {
			return session.ErrNotAuthenticated
		}

		t := newTable(a.Out, "FIELD", "VALUE")
		t.row("id", user.ID)
		t.row("username", user.Username)
		t.row("nickname", user.Nickname)
		t.row("type", user.Genre)
		t.row("role", user.RoleID)
		t.row("permissions", strings.Join(a.Permissions.Permissions().Slice(), ","))
		return t.flush()
	}
	return cmd
}

func newStatusCommand(a *App) *Command {
	cmd := newCommand("status", "Show the session state")
	follow := cmd.Flags.Bool("follow", false, "Wait until the session is ended by another process")

	cmd.Run = func(ctx context.Context, args []string) error {
		a.Session.HasToken(ctx)
		fmt.Fprintf(a.Out, "state: %s\n", a.Session.State())
		if !*follow || a.Session.Token() == "" {
			return nil
		}

		if err := a.Session.WatchSecrets(ctx); err != nil {
			if errors.Is(err, secret.ErrWatchUnsupported) {
				return fmt.Errorf("the configured session store cannot be followed: %w", err)
			}
			return err
		}

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if a.Session.Token() == "" {
					fmt.Fprintf(a.Out, "state: %s\n", a.Session.State())
					return nil
				}
			}
		}
	}
	return cmd
}

func newMenuCommand(a *App) *Command {
	cmd := newCommand("menu", "Show the navigation menu of the session")
	cmd.Login = true
	cmd.Run = func(ctx context.Context, args []string) error {
		printMenu(a, a.Permissions.GenerateRoutes().Routes, "", 0)
		return nil
	}
	return cmd
}

// printMenu renders the visible routes. A parent with a single visible child collapses
// into that child unless it is marked alwaysShow.
func printMenu(a *App, routes []rbac.Route, parent string, depth int) {
	for _, route := range routes {
		if route.Meta.Hidden {
			continue
		}
		full := router.JoinPath(parent, route.Path)

		var visible []rbac.Route
		for _, child := range route.Children {
			if !child.Meta.Hidden {
				visible = append(visible, child)
			}
		}
		if len(visible) == 1 && !route.Meta.AlwaysShow {
			printMenu(a, visible, full, depth)
			continue
		}

		title := route.Meta.Title
		if title == "" {
			title = route.Name
		}
		if title == "" {
			title = full
		}
		fmt.Fprintf(a.Out, "%s%s  %s\n", strings.Repeat("  ", depth), title, full)
		printMenu(a, visible, full, depth+1)
	}
}

func newOpenCommand(a *App) *Command {
	cmd := newCommand("open", "Resolve a navigation path through the route guard")
	cmd.Args = "<path>"
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("exactly one path is required")
		}

		d, err := a.Guard.Navigate(ctx, args[0])
		if err != nil {
			return err
		}
		if d.Match == nil {
			fmt.Fprintf(a.Out, "%s -> (no route)\n", args[0])
			return nil
		}
		title := d.Match.Route.Meta.Title
		if title == "" {
			title = d.Match.Route.Name
		}
		fmt.Fprintf(a.Out, "%s -> %s %s\n", args[0], d.Match.Template, title)
		return nil
	}
	return cmd
}
