package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hnwatch/internal/config"
	"hnwatch/internal/hn"
	"hnwatch/internal/render"
	"hnwatch/internal/story"
)

const requestTimeout = 15 * time.Second

type rootOptions struct {
	configPath string
	addr       string
	plain      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "hnwatch",
		Short:         "Watch Hacker News and get notified about stories you care about",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.addr, "addr", "http://localhost:9090", "Address of a running hnwatch daemon")
	root.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Disable colors")

	root.AddCommand(
		newServeCmd(opts),
		newStoriesCmd(opts),
		newItemCmd(opts),
		newUserCmd(opts),
		newPingCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fetcher, watcher and notifier daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts.configPath)
		},
	}
}

func newStoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "stories <category>",
		Short:     "Show a category from the daemon's snapshot",
		Args:      cobra.ExactArgs(1),
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := story.ParseCategory(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			stories, err := newAPIClient(opts.addr).Stories(ctx, c)
			if err != nil {
				return err
			}
			if len(stories) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no %s stories yet\n", c)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), opts.renderer(cmd.OutOrStdout()).Stories(stories))
			return nil
		},
	}
}

func newItemCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item <id>",
		Short: "Show one story from the daemon's snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			s, err := newAPIClient(opts.addr).Item(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, opts.renderer(out).Story(1, s))
			fmt.Fprintf(out, "    %s\n", s.Link())
			return nil
		},
	}
}

func newUserCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "user <name>",
		Short: "Show a Hacker News user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			u, err := opts.hnClient().User(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, opts.renderer(out).User(u))
			return nil
		},
	}
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Print the HTTP status of the Hacker News site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			status, err := opts.hnClient().Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func (o *rootOptions) renderer(out io.Writer) *render.Renderer {
	if o.plain {
		return render.Plain()
	}
	return render.New(out)
}

// hnClient builds a Firebase client from the config file, falling back to
// defaults when it cannot be read.
func (o *rootOptions) hnClient() *hn.Client {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "path", o.configPath, "error", err)
	}
	return hn.NewClient(nil, cfg.Feed.BaseURL, cfg.Feed.RatePerSec)
}

func categoryNames() []string {
	names := make([]string, 0, len(story.Categories))
	for _, c := range story.Categories {
		names = append(names, c.String())
	}
	return names
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
