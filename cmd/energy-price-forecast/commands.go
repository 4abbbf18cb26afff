package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/energy-price-forecast/internal/api/http"
	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/config"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/monitoring"
	"github.com/i474232898/energy-price-forecast/internal/scheduler"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "energy-price-forecast",
		Short:         "Weather features, price monitoring and feature-store maintenance for the energy price model",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newBackfillCmd(),
		newPredictCmd(),
		newPurgeCmd(),
		newCoordsCmd(),
		newPriceCmd(),
		newRegisterModelCmd(),
	)
	return root
}

// withApp loads config, wires the services and runs fn with a signal-aware context.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newServeCmd() *cobra.Command {
	var schedule bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the daily pipeline on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				return runServe(ctx, a, schedule)
			})
		},
	}
	cmd.Flags().BoolVar(&schedule, "schedule", true, "run ingest and backfill on BACKFILL_SCHEDULE")
	return cmd
}

func runServe(ctx context.Context, a *app, schedule bool) error {
	if schedule {
		p, err := a.pipeline(ctx)
		if err != nil {
			log.Printf("ERROR: pipeline unavailable, serving without scheduler: %v", err)
		} else {
			sched := scheduler.New(a.cfg.BackfillSchedule, 10*time.Minute, p)
			if err := sched.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer sched.Stop()
		}
	}

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               "energy-price-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          a.cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "energy-price-forecast",
		})
	})
	server.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	httpapi.RegisterRoutes(server, httpapi.Deps{
		Weather:   a.weather,
		Geocoder:  a.geocoder,
		Prices:    a.prices,
		Locations: a.cfg.Locations,
	})

	go func() {
		if err := server.Listen(":" + a.cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", a.cfg.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch recent historical weather and upsert it into the weather feature group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				p, err := a.pipeline(ctx)
				if err != nil {
					return err
				}
				n, err := p.Ingest(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ingested %d rows\n", n)
				return nil
			})
		},
	}
}

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Predict the recent window, write monitoring rows and render the hindcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				p, err := a.pipeline(ctx)
				if err != nil {
					return err
				}
				res, err := p.Backfill(ctx)
				if err != nil {
					return err
				}
				printHindcast(cmd, res)
				return nil
			})
		},
	}
}

func printHindcast(cmd *cobra.Command, res monitoring.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n%-10s  %12s  %12s\n", res.RunID, "date", "predicted", "price")
	for _, r := range res.Hindcast {
		fmt.Fprintf(out, "%-10s  %12.2f  %12s\n", r.Date.Format(common.DateLayout), r.PredictedPrice, r.Price.StringFixed(2))
	}
}

func newPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Predict prices from the weather forecast and render the forecast plot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				p, err := a.pipeline(ctx)
				if err != nil {
					return err
				}
				rows, err := p.Predict(ctx)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f\n", r.Date.Format(common.DateLayout), r.PredictedPrice)
				}
				return nil
			})
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var confirm bool
	plan := featurestore.DefaultPurgePlan()

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Irreversibly delete the pipeline's feature views, groups, models and secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintf(cmd.OutOrStdout(), "would delete views %v, groups %v, models %v, secrets %v\nrerun with --confirm to proceed\n",
					plan.FeatureViews, plan.FeatureGroups, plan.Models, plan.Secrets)
				return nil
			}
			return withApp(func(ctx context.Context, a *app) error {
				admin, err := a.admin()
				if err != nil {
					return err
				}
				outcomes, err := admin.Purge(ctx, plan)
				for _, o := range outcomes {
					fmt.Fprintln(cmd.OutOrStdout(), o)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually delete")
	cmd.Flags().StringSliceVar(&plan.FeatureViews, "views", plan.FeatureViews, "feature views to delete")
	cmd.Flags().StringSliceVar(&plan.FeatureGroups, "groups", plan.FeatureGroups, "feature groups to delete")
	cmd.Flags().StringSliceVar(&plan.Models, "models", plan.Models, "models to delete")
	cmd.Flags().StringSliceVar(&plan.Secrets, "secrets", plan.Secrets, "secrets to delete")
	return cmd
}

func newCoordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coords <place>",
		Short: "Resolve a place name to coordinates rounded to two digits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				place := strings.Join(args, " ")
				c, err := a.geocoder.Resolve(ctx, place)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %.2f, %.2f\n", place, c.Latitude, c.Longitude)
				return nil
			})
		},
	}
}

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price [YYYY-MM-DD]",
		Short: "Print the energy price of a date, or the whole table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					for _, r := range a.prices.Records() {
						fmt.Fprintf(out, "%s  %s\n", r.Date.Format(common.DateLayout), r.Price.StringFixed(2))
					}
					return nil
				}
				d, err := common.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", args[0], err)
				}
				p, err := a.prices.Lookup(d)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s %s\n", args[0], p.StringFixed(2), a.prices.Currency())
				return nil
			})
		},
	}
}

func newRegisterModelCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "register-model",
		Short: "Store a linear model artifact as the next version in the local registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			m, err := monitoring.LoadLinearModelFile(file)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				name := m.Name
				if name == "" {
					name = a.cfg.ModelName
				}
				v, err := a.store.RegisterModel(ctx, name, raw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s version %d\n", name, v)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the model JSON artifact")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
