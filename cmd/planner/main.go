package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"dayplanner/internal/app"
	"dayplanner/internal/calendar"
	"dayplanner/internal/config"
	"dayplanner/internal/db"
	"dayplanner/internal/logging"
	"dayplanner/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Day planner CLI",
	Long: `planner keeps a personal day planner in a local workspace.
- Activities are filed under a calendar date. Timed ones form the day's timeline; untimed ones are to-dos you can tick off and reorder.
- An activity with an end date is copied onto every day of its range; edits and deletes follow every copy.
- The first look at today on an empty workspace adds a few example activities (seed.enabled in planner.yml).
- month and year summarize everything stored; search finds activities by name.
- Every change is logged; view it with 'planner log tail' or receive it through webhooks while 'planner serve' runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PLANNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("date", "d", "today", "selected date (YYYY-MM-DD, today, tomorrow, yesterday)")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("date", rootCmd.PersistentFlags().Lookup("date"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(dayCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(reorderCmd())
	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(yearCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

// loadConfig reads planner.yml from the workspace, falling back to defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, viper.GetString("workspace"), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// selectedDate resolves --date against the workspace time zone.
func selectedDate(a *app.App) (calendar.Date, error) {
	return resolveDate(a, viper.GetString("date"))
}

func resolveDate(a *app.App, raw string) (calendar.Date, error) {
	today := a.Store.Today()
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return calendar.Parse(raw)
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the planner API for this workspace. Set PLANNER_JWT_SECRET to require bearer tokens (mint one with 'planner token').",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt_secret")}
				if !authCfg.Enabled() && !isLoopback(addr) {
					a.Logger.Warn("serving without authentication on a non-loopback address", zap.String("addr", addr))
				}
				handler, err := server.New(server.Config{App: a, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				dispatcher := server.NewWebhookDispatcher(a.Events, a.Config.Webhooks, a.Logger.Named("webhooks"))
				hooksDone := make(chan struct{})
				go func() {
					defer close(hooksDone)
					dispatcher.Run(ctx)
				}()
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving planner API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				err = srv.ListenAndServe()
				cancel()
				<-hooksDone
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long:  "Signs an HS256 token with PLANNER_JWT_SECRET. The server must run with the same secret.",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt_secret")
			if secret == "" {
				return fmt.Errorf("PLANNER_JWT_SECRET is required to sign tokens")
			}
			token, err := server.SignToken(secret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-user", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 never expires)")
	return cmd
}

func isLoopback(addr string) bool {
	host := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
	}
	host = strings.Trim(host, "[]")
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
