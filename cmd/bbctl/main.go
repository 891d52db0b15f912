package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brainbites/brainbites-server/internal/config"
	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/infra/postgres"
	"github.com/brainbites/brainbites-server/internal/infra/sqlite"
	"github.com/brainbites/brainbites-server/internal/repository"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// bbctl is the operator tool: corpus sanity checks, device inspection and
// destructive resets, straight against the configured store.
func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "bbctl",
		Short:         "BrainBites server admin tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(corpusCmd(), deviceCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func corpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Question corpus operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Load the corpus and report its composition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			corpus, err := repository.NewCorpusRepository(cfg.CorpusPath)
			if err != nil {
				return err
			}

			byLevel := map[string]int{}
			for _, q := range corpus.All() {
				byLevel[q.Level]++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "corpus: %d questions\n", len(corpus.All()))
			fmt.Fprintf(cmd.OutOrStdout(), "categories: %v\n", corpus.Categories())
			for _, level := range []string{entities.DifficultyEasy, entities.DifficultyMedium, entities.DifficultyHard} {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %d\n", level, byLevel[level])
			}
			return nil
		},
	})

	return cmd
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Per-device data operations",
	}

	cmd.AddCommand(deviceStatsCmd(), deviceResetCmd())
	return cmd
}

func deviceStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <device-id>",
		Short: "Print a device's persisted ledgers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deviceID := args[0]
			out := cmd.OutOrStdout()

			if timer, err := repository.NewTimerRepository(store).Load(ctx, deviceID); err == nil {
				fmt.Fprintf(out, "time: available=%ds daily=%d weekly=%d monthly=%d reset=%s\n",
					timer.AvailableTime, timer.DailyTimeEarned, timer.WeeklyTimeEarned,
					timer.MonthlyTimeEarned, timer.LastResetDate)
			} else {
				fmt.Fprintln(out, "time: no data")
			}

			if score, err := repository.NewScoreRepository(store).Load(ctx, deviceID); err == nil {
				fmt.Fprintf(out, "score: total=%d streak=%d/%d answered=%d accuracy=%d%% achievements=%d\n",
					score.TotalScore, score.CurrentStreak, score.HighestStreak,
					score.QuestionsAnswered, score.Accuracy, len(score.Achievements))
			} else {
				fmt.Fprintln(out, "score: no data")
			}

			if goals, err := repository.NewGoalsRepository(store).Load(ctx, deviceID); err == nil {
				fmt.Fprintf(out, "goals: date=%s completed=%d/%d rewards=%ds\n",
					goals.Date, goals.CompletedGoals, len(goals.Goals), goals.TotalRewardsEarned)
			} else {
				fmt.Fprintln(out, "goals: no data")
			}

			return nil
		},
	}
}

func deviceResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset <device-id>",
		Short: "Delete every persisted blob for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}

			ctx := cmd.Context()
			store, cleanup, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deviceID := args[0]
			repos := []interface {
				Delete(ctx context.Context, deviceID string) error
			}{
				repository.NewTimerRepository(store),
				repository.NewScoreRepository(store),
				repository.NewGoalsRepository(store),
				repository.NewUsedQuestionsRepository(store),
			}
			for _, r := range repos {
				if err := r.Delete(ctx, deviceID); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "device %s reset\n", deviceID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive reset")
	return cmd
}

func openStore(ctx context.Context) (storage.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Driver {
	case "postgres":
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		kv, err := postgres.NewKV(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv, pool.Close, nil

	case "sqlite":
		kv, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil

	default:
		fmt.Fprintln(os.Stderr, "warning: memory driver holds no persisted data")
		return storage.NewMemory(), func() {}, nil
	}
}
