package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Ludeme/Ludii-sub005/engine"
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kriegspiel",
		Short:        "Kriegspiel player tracking the hidden board with probabilities",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "yaml config file (defaults when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
	root.AddCommand(playCmd(), selfPlayCmd(), dumpCmd())
	return root
}

// setup loads the configuration and builds the stderr logger.
func setup() (engine.Config, zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return engine.Config{}, zerolog.Nop(), err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).With().Timestamp().Logger()

	cfg := engine.DefaultConfig()
	if configPath != "" {
		if cfg, err = engine.LoadConfig(configPath); err != nil {
			return cfg, log, err
		}
	}
	return cfg, log, nil
}

func playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play one side, reading umpire events from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return newProtocol(cfg, cmd.OutOrStdout(), log).run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

func selfPlayCmd() *cobra.Command {
	var (
		games    int
		maxPlies int
		pgnPath  string
	)
	cmd := &cobra.Command{
		Use:   "selfplay",
		Short: "Play the engine against itself under the umpire",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pgnPath != "" {
				f, err := os.Create(pgnPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			sp := newSelfPlay(cfg, log)
			sp.maxPlies = maxPlies
			for i := 0; i < games; i++ {
				rec, err := sp.play(cmd.Context())
				if err != nil {
					return fmt.Errorf("game %d: %w", i+1, err)
				}
				fmt.Fprintf(out, "%s\n\n", rec.PGN)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&games, "games", 1, "number of games")
	cmd.Flags().IntVar(&maxPlies, "max-plies", 300, "adjudicate a draw after this many plies")
	cmd.Flags().StringVar(&pgnPath, "pgn", "", "write games to this file instead of stdout")
	return cmd
}

func dumpCmd() *cobra.Command {
	var side string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the initial belief of one side",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			c, err := gm.ParseColor(side)
			if err != nil {
				return err
			}
			pb := engine.NewProbabilityBoard(cfg, gm.NewTables(), c, log)
			fmt.Fprint(cmd.OutOrStdout(), pb)
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "side", "white", "white or black")
	return cmd
}
