package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/validation"
)

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parseEmail parses the -email flag shared by every command.
func (a *App) parseEmail(name string, args []string) (string, error) {
	fs := a.newFlagSet(name)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if strings.TrimSpace(*email) == "" {
		return "", fmt.Errorf("%w: -email is required", ErrUsage)
	}
	return *email, nil
}

func (a *App) findUser(ctx context.Context, email string) (*models.User, error) {
	u, err := a.accounts.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("no account for %s: %w", email, err)
	}
	return u, err
}

func (a *App) create(ctx context.Context, args []string) error {
	fs := a.newFlagSet("create")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if *name == "" {
		n, err := GetSimpleText(a.in, "Name", a.out)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*name = n
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	u := &models.User{Name: *name, Email: *email, Password: string(pw), PasswordConfirmation: string(confirm)}
	if err := a.accounts.Save(ctx, u); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				fmt.Fprintf(a.out, "  %s\n", v)
			}
		}
		return err
	}

	fmt.Fprintf(a.out, "created %s (%s)\n", u.Email, u.ID)
	return nil
}

func (a *App) toggleAdmin(ctx context.Context, args []string) error {
	email, err := a.parseEmail("admin", args)
	if err != nil {
		return err
	}
	u, err := a.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := a.accounts.ToggleAdmin(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s admin=%t\n", u.Email, u.Admin)
	return nil
}

func (a *App) destroy(ctx context.Context, args []string) error {
	email, err := a.parseEmail("destroy", args)
	if err != nil {
		return err
	}
	u, err := a.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := a.accounts.Destroy(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "destroyed %s\n", u.Email)
	return nil
}

func (a *App) services(ctx context.Context, args []string) error {
	email, err := a.parseEmail("services", args)
	if err != nil {
		return err
	}
	u, err := a.findUser(ctx, email)
	if err != nil {
		return err
	}
	list, err := a.accounts.ListServices(ctx, u)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(a.out, "no services")
		return nil
	}
	for _, s := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Name)
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, err := a.parseEmail("login", args)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	res, err := a.accounts.Authenticate(ctx, email, string(pw))
	if err != nil {
		return err
	}
	if !res.Ok() {
		fmt.Fprintln(a.out, "authentication failed")
		return fmt.Errorf("authentication failed: %s", res.Outcome)
	}

	fmt.Fprintf(a.out, "authenticated %s (admin=%t)\n", res.User.Email, res.User.Admin)
	return nil
}
