// Package cli implements accountsctl, the operator tool for account
// administration. Each invocation runs one command against the configured
// database:
//
//	accountsctl [config flags] create   -name NAME -email EMAIL
//	accountsctl [config flags] admin    -email EMAIL
//	accountsctl [config flags] destroy  -email EMAIL
//	accountsctl [config flags] services -email EMAIL
//	accountsctl [config flags] login    -email EMAIL
//
// Passwords are always read from the terminal, never from arguments.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/accounts/internal/server/auth"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// Accounts is the part of accounts.UserService the CLI drives.
type Accounts interface {
	Save(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Authenticate(ctx context.Context, email, candidate string) (auth.AuthResult, error)
	ToggleAdmin(ctx context.Context, u *models.User) error
	Destroy(ctx context.Context, u *models.User) error
	ListServices(ctx context.Context, u *models.User) ([]*models.Service, error)
}

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

type App struct {
	accounts Accounts
	in       *bufio.Reader
	out      io.Writer
}

func NewApp(a Accounts, in io.Reader, out io.Writer) *App {
	return &App{accounts: a, in: bufio.NewReader(in), out: out}
}

// configFlags take a value and belong to the server config, not to commands.
var configFlags = map[string]struct{}{
	"-a": {}, "-b": {}, "-d": {}, "-k": {}, "-t": {}, "-i": {}, "-l": {}, "-c": {}, "-config": {},
}

// SplitCommand skips leading config flags and returns the command name and
// its own arguments.
func SplitCommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg, args[i+1:]
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if _, ok := configFlags[arg]; ok {
			i++
		}
	}
	return "", nil
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Available commands: create, admin, destroy, services, login")
}

// Run executes the command named in args.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := SplitCommand(args)

	switch cmd {
	case "create":
		return a.create(ctx, rest)
	case "admin":
		return a.toggleAdmin(ctx, rest)
	case "destroy":
		return a.destroy(ctx, rest)
	case "services":
		return a.services(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "", "help":
		a.usage()
		if cmd == "" {
			return ErrUsage
		}
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}
