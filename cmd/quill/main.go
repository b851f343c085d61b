// Command quill runs the blog: the HTTP server plus maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "quill",
		Usage: "a small blog with a JSON API",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			bootstrapCommand(),
			createUserCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "quill:", err)
		os.Exit(1)
	}
}

func storageFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "storage",
		Usage:   "storage backend: postgres, sqlite or memory",
		Value:   storageSQLite,
		EnvVars: []string{"STORAGE"},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP server",
		Flags:  []cli.Flag{storageFlag()},
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Flags: []cli.Flag{storageFlag()},
		Action: func(c *cli.Context) error {
			a, err := newApp(c.Context, c.String("storage"))
			if err != nil {
				return err
			}
			defer a.close()
			a.log.InfoContext(c.Context, "migrations applied")
			return nil
		},
	}
}

func bootstrapCommand() *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "seed sample posts, comments and the widget, then create the admin from ADMIN_EMAIL and ADMIN_PASSWORD",
		Flags: []cli.Flag{
			storageFlag(),
			&cli.StringFlag{Name: "admin-name", Value: "admin", Usage: "username of the admin account"},
		},
		Action: bootstrap,
	}
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "register a user",
		Flags: []cli.Flag{
			storageFlag(),
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"QUILL_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c.Context, c.String("storage"))
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.blogService(c.Context)
			if err != nil {
				return err
			}
			u, err := svc.CreateUser(c.Context, c.String("email"), c.String("name"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "created user %d (%s)\n", u.ID, u.Name)
			return nil
		},
	}
}
