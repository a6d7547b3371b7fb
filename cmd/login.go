package cmd

import (
	"errors"
	"fmt"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"quill/auth"
)

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "token",
		Usage: "Admin token to use instead of the saved one",
	}
}

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Save the admin token for later commands",
		Description: `Checks the admin token against the configured one and saves it
		next to the posts, so admin commands stop asking for it.

		Prompts for the token unless --token is given.`,
		Flags: []cli.Flag{tokenFlag()},
		Action: func(ctx *cli.Context) error {
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.gate.Configured() {
				return auth.ErrNotConfigured
			}

			token := ctx.String("token")
			if token == "" {
				token, err = askToken()
				if err != nil {
					return err
				}
			}

			if err := auth.NewKeeper(e.slots, e.gate).Login(ctx.Context, token); err != nil {
				return err
			}
			fmt.Println("Logged in")
			return nil
		},
	}
}

func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the saved admin token",
		Action: func(ctx *cli.Context) error {
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := auth.NewKeeper(e.slots, e.gate).Logout(ctx.Context); err != nil {
				return fmt.Errorf("failed to forget admin token: %w", err)
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func askToken() (string, error) {
	token, err := prompt.New().Ask("Admin token:").Input("", input.WithEchoMode(input.EchoNone))
	if err != nil {
		return "", fmt.Errorf("failed to read admin token: %w", err)
	}
	return token, nil
}

// authorize resolves the admin token from --token, the saved login or a
// prompt, and checks it against the configured one.
func authorize(c *cli.Context, e *env) error {
	if !e.gate.Configured() {
		return auth.ErrNotConfigured
	}

	if token := c.String("token"); token != "" {
		return e.gate.Check(token)
	}

	ctx := c.Context
	keeper := auth.NewKeeper(e.slots, e.gate)
	err := keeper.Authorized(ctx)
	if err == nil {
		return nil
	}
	if _, saved := keeper.Remembered(ctx); saved && errors.Is(err, auth.ErrInvalidToken) {
		log.Warn("Saved admin token no longer matches, run quill login again")
	}

	token, err := askToken()
	if err != nil {
		return err
	}
	return e.gate.Check(token)
}
