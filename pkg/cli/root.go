package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"

	"github.com/ozxin/nx-admin/pkg/contextkeys"
	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	// Args is the positional argument synopsis shown in usage
	Args string
	// Login marks commands that need a signed-in session
	Login bool
	// Auth is the permission required to run and list the command. It implies Login.
	Auth        rbac.Requirement
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

func newCommand(name, description string) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Flags:       flag.NewFlagSet(name, flag.ContinueOnError),
	}
}

func newGroup(name, description string, auth rbac.Requirement, subcommands ...*Command) *Command {
	group := &Command{
		Name:        name,
		Description: description,
		Auth:        auth,
		Subcommands: make(map[string]*Command, len(subcommands)),
	}
	for _, sub := range subcommands {
		group.Subcommands[sub.Name] = sub
	}
	return group
}

// NewRootCommand creates the root command
func NewRootCommand(a *App) *Command {
	root := newGroup("nxadmin", "nx-admin - administration console", rbac.None(),
		newLoginCommand(a),
		newCaptchaCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newStatusCommand(a),
		newMenuCommand(a),
		newOpenCommand(a),
		newUsersCommand(a),
		newRolesCommand(a),
		newPermissionsCommand(a),
		newSystemCommand(a),
	)
	return root
}

// Execute runs the command named by args
func (a *App) Execute(ctx context.Context, args []string) error {
	ctx = observability.WithLogger(ctx, a.Logger)
	if username := a.Session.Username(); username != "" {
		ctx = contextkeys.WithUserID(ctx, username)
	}
	err := NewRootCommand(a).execute(ctx, a, nil, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (c *Command) execute(ctx context.Context, a *App, parents []string, args []string) error {
	if c.Login || !c.Auth.IsNone() {
		if err := a.authorize(ctx, c.Auth); err != nil {
			return err
		}
	}

	if c.Subcommands != nil {
		if len(args) == 0 || isHelp(args[0]) {
			return a.usage(ctx, c, parents)
		}
		sub, ok := c.Subcommands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		return sub.execute(ctx, a, append(parents, c.Name), args[1:])
	}

	if c.Flags != nil {
		c.Flags.SetOutput(a.Err)
		if err := c.Flags.Parse(args); err != nil {
			return err
		}
		args = c.Flags.Args()
	}
	return c.Run(ctx, args)
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// usage prints the subcommands of c the session may run
func (a *App) usage(ctx context.Context, c *Command, parents []string) error {
	if a.Session.HasToken(ctx) && !a.Permissions.IsLoaded() {
		if err := a.ensureSession(ctx); err != nil {
			a.Log.WithError(err).Debug("session not loaded for usage")
		}
	}

	commands := make([]*Command, 0, len(c.Subcommands))
	for _, sub := range c.Subcommands {
		commands = append(commands, sub)
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	commands = rbac.Visible(a.Session, commands, func(cmd *Command) rbac.Requirement { return cmd.Auth })

	name := c.Name
	for i := len(parents) - 1; i >= 0; i-- {
		name = parents[i] + " " + name
	}
	fmt.Fprintf(a.Out, "Usage: %s <command> [args]\n\n", name)
	fmt.Fprintf(a.Out, "Commands:\n")
	for _, cmd := range commands {
		label := cmd.Name
		if cmd.Args != "" {
			label += " " + cmd.Args
		}
		fmt.Fprintf(a.Out, "  %-28s %s\n", label, cmd.Description)
	}
	return nil
}
