package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"safemeds-backend/config"
	"safemeds-backend/database"
	"safemeds-backend/dtos"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// App holds the command dependencies
type App struct {
	db      *gorm.DB
	service *services.StaffService
	ctx     context.Context
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&App{ctx: ctx}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "shiftctl",
		Short:        "SafeMeds shift tooling",
		Long:         `Operator commands for generating shifts and inspecting staff availability outside the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	rootCmd.AddCommand(generateCmd(app))
	rootCmd.AddCommand(availabilityCmd(app))
	rootCmd.AddCommand(migrateCmd(app))

	return rootCmd
}

// init connects to the database unless a connection was injected.
func (a *App) init() error {
	if a.ctx == nil {
		a.ctx = context.Background()
	}
	if a.db != nil {
		if a.service == nil {
			a.service = services.NewStaffService(a.db)
		}
		return nil
	}

	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	utils.InitLogger()

	db, err := database.Connect()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	loc, err := config.ShiftLocation()
	if err != nil {
		return err
	}

	a.db = db
	a.service = services.NewStaffService(db)
	a.service.Location = loc
	a.service.MaxRangeDays = config.GetInt("SHIFT_GENERATION_MAX_DAYS", services.DefaultMaxRangeDays)
	return nil
}

func generateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate shifts from weekly schedules for a date range",
		Example: `  shiftctl generate --from 2026-10-19 --to 2026-10-25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")

			from, err := utils.ParseDate(fromFlag)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := utils.ParseDate(toFlag)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			runID, result, err := app.service.RunGeneration(app.ctx, dtos.RunSourceCLI, from, to)
			summary := map[string]interface{}{
				"run_id":         runID,
				"created":        result.Created,
				"skipped":        result.Skipped,
				"days_processed": result.DaysProcessed,
			}
			if result.LastDate != nil {
				summary["last_date"] = result.LastDate.Format(utils.DateLayout)
			}
			if err != nil {
				summary["error"] = err.Error()
			}
			if encErr := writeJSON(cmd, summary); encErr != nil {
				return encErr
			}
			return err
		},
	}

	cmd.Flags().String("from", "", "First day to generate (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day to generate, inclusive (YYYY-MM-DD)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func availabilityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print staff availability for a day as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")
			onlyAvailable, _ := cmd.Flags().GetBool("available")

			date, err := utils.ParseDate(dateFlag)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}

			records, err := app.service.GetStaffAvailability(app.ctx, date)
			if err != nil {
				return err
			}
			if onlyAvailable {
				filtered := records[:0]
				for _, r := range records {
					if r.IsAvailable {
						filtered = append(filtered, r)
					}
				}
				records = filtered
			}
			return writeJSON(cmd, records)
		},
	}

	cmd.Flags().String("date", "", "Day to report on (YYYY-MM-DD)")
	cmd.Flags().Bool("available", false, "Only list staff who are available")
	cmd.MarkFlagRequired("date")

	return cmd
}

func migrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(app.db); err != nil {
				return err
			}
			log.Info().Msg("Migrations applied")
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
