package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"blog-admin/internal/config"
	"blog-admin/internal/factory"
	"blog-admin/internal/hashing"
	"blog-admin/internal/service"
)

type factoryFn func(cfg *config.Config) (*factory.Factory, error)

func newApp(cfg *config.Config, build factoryFn) *cli.App {
	return &cli.App{
		Name:  "blogctl",
		Usage: "Operator tasks for the blog admin service",
		Commands: []*cli.Command{
			createAdminCmd(cfg, build),
			hashPasswordCmd(cfg),
			migrateCmd(cfg, build),
		},
	}
}

// openFactory validates the config before touching any store.
func openFactory(cfg *config.Config, build factoryFn) (*factory.Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(cfg)
}

func createAdminCmd(cfg *config.Config, build factoryFn) *cli.Command {
	var email, name, role string
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create or update an administrator account (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Login email of the account",
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "Display name",
				Value:       "Admin User",
				Destination: &name,
			},
			&cli.StringFlag{
				Name:        "role",
				Usage:       "admin or editor",
				Value:       "admin",
				Destination: &role,
			},
		},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}
			f, err := openFactory(cfg, build)
			if err != nil {
				return err
			}
			defer f.Close()

			user, err := f.ServiceFactory().AccountService().Upsert(ctx.Context, service.AccountCreateRequest{
				Email:    email,
				Name:     name,
				Role:     role,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "Admin user saved: %s (%s, role %s)\n", user.Email, user.ID, user.Role)
			return nil
		},
	}
}

func hashPasswordCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Print the bcrypt hash of the password read from stdin",
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}
			hash, err := hashing.NewHasher(cfg.Hashing.BcryptCost).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, hash)
			return nil
		},
	}
}

func migrateCmd(cfg *config.Config, build factoryFn) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the account store schema",
		Action: func(ctx *cli.Context) error {
			f, err := openFactory(cfg, build)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.Migrate(ctx.Context); err != nil {
				return fmt.Errorf("migrate %s: %w", f.Store().Backend, err)
			}
			fmt.Fprintf(ctx.App.Writer, "Schema up to date (%s)\n", f.Store().Backend)
			return nil
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimSpace(sc.Text())
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	if len(password) < service.MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
	}
	return password, nil
}
