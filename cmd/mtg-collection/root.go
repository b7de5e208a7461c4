package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-collection/internal/mutation"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mtg-collection",
		Short:         "Track where every physical Magic card is stored",
		Long:          "mtg-collection records each owned copy in a storage location and plans which locations to open to pull a deck.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.mtg-collection/config.toml)")
	flags.StringVar(&a.dbPath, "db", "", "collection database (overrides config and MTG_COLLECTION_DB)")
	flags.BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")
	flags.BoolVarP(&a.yes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		newImportCmd(a),
		newFetchImagesCmd(a),
		newAllocateCmd(a),
		newAddCmd(a),
		newMoveCmd(a),
		newSearchCmd(a),
		newLocateCmd(a),
		newShellCmd(a),
		newMigrateCmd(a),
		newBackupCmd(a),
	)
	return root
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <set> <number> [amount] [lang] <Type[Ref]>",
		Short: "Add copies of a printing to a location",
		Long: "Add copies of a printing to a location. Tokens may come in any order; " +
			"the amount defaults to 1 and the language to the first configured language.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.mutationEngine(mutation.NewUndoStack())
			if err != nil {
				return err
			}
			return a.add(cmd.Context(), engine, strings.Join(args, " "))
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <set> <number> <count> <From[Ref]> <To[Ref]>",
		Short: "Move copies of a printing between locations",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.mutationEngine(mutation.NewUndoStack())
			if err != nil {
				return err
			}
			return a.move(cmd.Context(), engine, args)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search owned cards",
		Long: "Search owned cards. Terms: name parts (all must match), l:<format> " +
			"(legal in format, l:c for commander) and id<=<colors> (color identity within colors).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd.Context(), args)
		},
	}
}

func newLocateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <name>",
		Short: "Show where the copies of a card are stored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.locate(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func newAllocateCmd(a *app) *cobra.Command {
	var (
		opts  allocateOptions
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "allocate [names...]",
		Short: "Plan which locations to open to pull a set of cards",
		Long: "Plan which locations to open to pull a set of cards. Names come from the " +
			"arguments and from a deck list (--file, lines of \"<count> <name>\").",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.names = args
			if len(opts.names) == 0 && opts.file == "" {
				return fmt.Errorf("allocate needs card names or --file")
			}
			if watch {
				if opts.file == "" {
					return fmt.Errorf("--watch needs --file")
				}
				return a.watchAllocate(cmd.Context(), opts)
			}

			var engine *mutation.Engine
			if !opts.console {
				var err error
				if engine, err = a.mutationEngine(mutation.NewUndoStack()); err != nil {
					return err
				}
			}
			return a.allocate(cmd.Context(), engine, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "deck list file")
	flags.StringVarP(&opts.target, "target", "t", "", "location the deck is assembled in, e.g. Deck[Elves]")
	flags.StringVar(&opts.strategy, "strategy", "", "lp or greedy (default from config)")
	flags.BoolVar(&opts.console, "console", false, "print a flat tab-separated table and exit")
	flags.BoolVarP(&watch, "watch", "w", false, "re-plan whenever the deck list file changes")
	return cmd
}
