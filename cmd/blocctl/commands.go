package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bloc-editor/auth"
	"bloc-editor/internal/bloc"
	"bloc-editor/internal/config"
	"bloc-editor/internal/fractional"
	"bloc-editor/internal/remote"
	"bloc-editor/internal/syncer"
	"bloc-editor/internal/tree"
	"bloc-editor/internal/worker"

	"github.com/goccy/go-json"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

// storeFactory builds the store a command talks to. Tests replace it.
type storeFactory func(c *cli.Context) bloc.Store

func remoteStore(c *cli.Context) bloc.Store {
	return remote.NewClient(c.String("api"), c.String("token"))
}

func newApp(log zerolog.Logger) *cli.App {
	return buildApp(log, remoteStore)
}

func buildApp(log zerolog.Logger, open storeFactory) *cli.App {
	pageFlag := &cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "page id", Required: true}
	return &cli.App{
		Name:  "blocctl",
		Usage: "inspect and edit the blocs of a page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: config.AppConfig.APIAddress, EnvVars: []string{"API_ADDRESS"}, Usage: "bloc API base URL"},
			&cli.StringFlag{Name: "token", Value: config.AppConfig.APIToken, EnvVars: []string{"API_TOKEN"}, Usage: "bearer token"},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the blocs of a page in order",
				Flags: []cli.Flag{pageFlag, &cli.BoolFlag{Name: "json", Usage: "print raw blocs"}},
				Action: func(c *cli.Context) error {
					blocs, err := open(c).GetBlocsByPageID(c.Context, c.String("page"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(c.App.Writer, blocs)
					}
					printBlocs(c.App.Writer, blocs)
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "show one bloc",
				ArgsUsage: "<bloc id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("missing bloc id", 2)
					}
					b, err := open(c).GetBlocByID(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, b)
				},
			},
			{
				Name:  "delete-page",
				Usage: "delete every bloc of a page",
				Flags: []cli.Flag{pageFlag},
				Action: func(c *cli.Context) error {
					deleted, err := open(c).DeleteBlocByPageID(c.Context, c.String("page"))
					if err != nil {
						return err
					}
					if !deleted {
						fmt.Fprintln(c.App.Writer, "nothing to delete")
						return nil
					}
					fmt.Fprintln(c.App.Writer, "deleted")
					return nil
				},
			},
			{
				Name:      "move",
				Usage:     "move a bloc to an index of its page",
				ArgsUsage: "<bloc id> <index>",
				Flags:     []cli.Flag{pageFlag},
				Action: func(c *cli.Context) error {
					var index int
					if c.NArg() != 2 {
						return cli.Exit("usage: move --page <page> <bloc id> <index>", 2)
					}
					if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &index); err != nil {
						return cli.Exit("index must be a number", 2)
					}
					position, err := moveBloc(c.Context, open(c), c.String("page"), c.Args().First(), index)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, position)
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "mint an API token",
				Flags: []cli.Flag{&cli.StringFlag{Name: "subject", Usage: "token subject, random when empty"}},
				Action: func(c *cli.Context) error {
					subject := c.String("subject")
					if subject == "" {
						subject = xid.New().String()
					}
					token, err := auth.GenerateJWT(subject)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
			{
				Name:  "demo",
				Usage: "run a scripted editing session and print the resulting page",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "page id, random when empty"},
				},
				Action: func(c *cli.Context) error {
					page := c.String("page")
					if page == "" {
						page = "demo-" + xid.New().String()
					}
					store := open(c)
					if err := runDemo(c.Context, store, page, log); err != nil {
						return err
					}
					blocs, err := store.GetBlocsByPageID(c.Context, page)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "page %s\n", page)
					printBlocs(c.App.Writer, blocs)
					return nil
				},
			},
		},
	}
}

// moveBloc gives id a position placing it at index among the other blocs
// of page, and returns that position.
func moveBloc(ctx context.Context, store bloc.Store, page, id string, index int) (string, error) {
	blocs, err := store.GetBlocsByPageID(ctx, page)
	if err != nil {
		return "", err
	}
	others := make([]bloc.Bloc, 0, len(blocs))
	found := false
	for _, b := range blocs {
		if b.ID == id {
			found = true
			continue
		}
		others = append(others, b)
	}
	if !found {
		return "", xerrors.Errorf("bloc %s is not on page %s", id, page)
	}
	index = max(0, min(index, len(others)))

	var lower, upper string
	if index > 0 {
		lower = others[index-1].Position
	}
	if index < len(others) {
		upper = others[index].Position
	}
	position, err := fractional.KeyBetween(lower, upper)
	if err != nil {
		return "", err
	}
	status, err := store.UpdateBlocPosition(ctx, id, position, time.Now().UnixMilli())
	if err != nil {
		return "", err
	}
	if status == bloc.StatusError {
		return "", xerrors.Errorf("move bloc %s: %s", id, status)
	}
	return position, nil
}

// runDemo drives an editor through a short session mirrored into store.
func runDemo(ctx context.Context, store bloc.Store, page string, log zerolog.Logger) error {
	editor := tree.NewEditor()
	engine := syncer.NewEngine(editor, syncer.Options{
		PageID:  page,
		Store:   store,
		Logger:  log,
		Workers: config.AppConfig.WorkerCount,
		Strict:  config.AppConfig.StrictInvariants,
	})
	engine.Attach()
	interval := config.AppConfig.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	engine.StartFlusher(worker.NewTicker(interval))
	defer engine.Close(ctx)

	if err := engine.Open(ctx); err != nil {
		return err
	}

	var title, first, second, third tree.NodeKey
	steps := []func(m *tree.Mutator) error{
		func(m *tree.Mutator) error {
			title = m.CreateHeading("h1")
			if err := m.Append(m.Root(), title); err != nil {
				return err
			}
			return m.Append(title, m.CreateText("Demo"))
		},
		func(m *tree.Mutator) error {
			for _, p := range []*tree.NodeKey{&first, &second, &third} {
				*p = m.CreateParagraph()
				if err := m.Append(m.Root(), *p); err != nil {
					return err
				}
			}
			if err := m.Append(first, m.CreateText("first")); err != nil {
				return err
			}
			if err := m.Append(second, m.CreateText("second")); err != nil {
				return err
			}
			return m.Append(third, m.CreateWidget(tree.MathWidget{Expression: "e^{i\\pi}+1=0"}))
		},
		func(m *tree.Mutator) error {
			n, _ := m.Get(first)
			return m.AppendText(n.Children[0], " paragraph")
		},
		func(m *tree.Mutator) error { return m.InsertBefore(second, third) },
		func(m *tree.Mutator) error { return m.Remove(second) },
	}
	for i, step := range steps {
		if err := editor.Update(step); err != nil {
			return xerrors.Errorf("demo step %d: %w", i, err)
		}
	}
	editor.Undo()
	engine.Flush(ctx)
	engine.Wait()

	if failed := engine.State().Failed(); len(failed) > 0 {
		return xerrors.Errorf("%d bloc writes failed", len(failed))
	}
	return nil
}

func printBlocs(w io.Writer, blocs []bloc.Bloc) {
	for _, b := range blocs {
		fmt.Fprintf(w, "%-12s %-36s %-10s %s\n", b.Position, b.ID, b.BlocType, summary(b.Content))
	}
}

// summary returns the text of a stored node, or a marker when the content
// cannot be read.
func summary(content string) string {
	n, err := tree.Decode(content)
	if err != nil {
		return "<unreadable>"
	}
	var b strings.Builder
	var walk func(n tree.SerializedNode)
	walk = func(n tree.SerializedNode) {
		b.WriteString(n.Text)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
