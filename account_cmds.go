package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func (st *appState) signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account and sign in on this device.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			id, err := b.session.SignUp(c.Context, c.String("name"), c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "signed up as %s <%s>\n", id.Name, id.Email)
			return nil
		}),
	}
}

func (st *appState) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in on this device.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			id, err := b.session.SignIn(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "signed in as %s <%s>\n", id.Name, id.Email)
			return nil
		}),
	}
}

func (st *appState) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out on this device.",
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			if err := b.session.SignOut(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "signed out")
			return nil
		}),
	}
}

func (st *appState) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in account.",
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			id, ok := b.session.CurrentUser()
			if !ok {
				fmt.Fprintln(c.App.Writer, "not signed in")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%s <%s> (%s)\n", id.Name, id.Email, id.ID)
			return nil
		}),
	}
}

func (st *appState) passwdCommand() *cli.Command {
	return &cli.Command{
		Name:  "passwd",
		Usage: "Change the password of the signed-in account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			if err := b.session.ChangePassword(c.Context, c.String("password")); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "password changed")
			return nil
		}),
	}
}
