package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"quill/models"
)

func postsCmd() *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Read and manage posts",
		Subcommands: []*cli.Command{
			listPostsCmd(),
			showPostCmd(),
			createPostCmd(),
			updatePostCmd(),
			deletePostCmd(),
		},
	}
}

func listPostsCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List posts, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print each post as a JSON object on a single line",
			},
		},
		Action: func(ctx *cli.Context) error {
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			posts := e.store.List(ctx.Context)
			models.SortByRecency(posts)

			if ctx.Bool("json") {
				for i := range posts {
					printStdout(&posts[i])
				}
				return nil
			}
			return printTable(os.Stdout, posts)
		},
	}
}

func showPostCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a single post as JSON",
		ArgsUsage: "<id>",
		Action: func(ctx *cli.Context) error {
			id, err := idArg(ctx)
			if err != nil {
				return err
			}
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			post, ok := e.store.Get(ctx.Context, id)
			if !ok {
				return fmt.Errorf("post %s not found", id)
			}
			printStdout(&post)
			return nil
		},
	}
}

func postInputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Usage:    "Post title",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "content",
			Usage:    "Post content, or - to read it from stdin",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "ISO-8601 publication date, defaults to now",
		},
		tokenFlag(),
	}
}

func createPostCmd() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a post",
		Flags: postInputFlags(),
		Action: func(ctx *cli.Context) error {
			in, err := postInput(ctx)
			if err != nil {
				return err
			}
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := authorize(ctx, e); err != nil {
				return err
			}

			post, err := e.store.Create(ctx.Context, in)
			if err != nil {
				return err
			}
			printStdout(&post)
			return nil
		},
	}
}

func updatePostCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace title, content and date of a post",
		ArgsUsage: "<id>",
		Flags:     postInputFlags(),
		Action: func(ctx *cli.Context) error {
			id, err := idArg(ctx)
			if err != nil {
				return err
			}
			in, err := postInput(ctx)
			if err != nil {
				return err
			}
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := authorize(ctx, e); err != nil {
				return err
			}

			post, ok, err := e.store.Update(ctx.Context, id, in)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("post %s not found", id)
			}
			printStdout(&post)
			return nil
		},
	}
}

func deletePostCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a post",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{tokenFlag()},
		Action: func(ctx *cli.Context) error {
			id, err := idArg(ctx)
			if err != nil {
				return err
			}
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := authorize(ctx, e); err != nil {
				return err
			}

			ok, err := e.store.Delete(ctx.Context, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("post %s not found", id)
			}
			fmt.Println("Deleted", id)
			return nil
		},
	}
}

func idArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one post id, got %d arguments", ctx.NArg())
	}
	return ctx.Args().First(), nil
}

// postInput collects and validates the post fields from flags
func postInput(ctx *cli.Context) (models.PostInput, error) {
	content := ctx.String("content")
	if content == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return models.PostInput{}, fmt.Errorf("failed to read content from stdin: %w", err)
		}
		content = string(raw)
	}

	in := models.PostInput{
		Title:   strings.TrimSpace(ctx.String("title")),
		Content: content,
		Date:    ctx.String("date"),
	}
	if err := models.ValidateInput(validator.New(), in); err != nil {
		return models.PostInput{}, err
	}
	return in, nil
}

func printTable(w io.Writer, posts []models.Post) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Id, p.Date, p.Title)
	}
	return tw.Flush()
}

func printStdout(post *models.Post) {
	// Print as single JSON string on a single line
	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("Error marshalling post %s: %v", post.Id, err)
		return
	}
	fmt.Println(string(postJson))
}
