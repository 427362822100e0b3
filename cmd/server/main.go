package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/janisto/greeting-service/internal/config"
	applog "github.com/janisto/greeting-service/internal/platform/logging"
	"github.com/janisto/greeting-service/internal/server"
	greetingsvc "github.com/janisto/greeting-service/internal/service/greeting"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Flags are bound into v so they take precedence
// over the environment and .env file.
func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "greeting-server",
		Short:         "Serve the greeting API",
		Long:          "Serves GET /greeting, which returns a greeting with a process-wide incrementing id.",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.SetVersionTemplate("greeting-server version {{.Version}}\n")

	def := config.Default()
	flags := cmd.Flags()
	flags.String("host", def.Host, "Interface to bind (empty for all)")
	flags.String("port", def.Port, "Port to listen on (0 picks a free port)")
	flags.String("log-level", def.LogLevel, "Log level: debug, info, warn, error")
	flags.Duration("shutdown-timeout", def.ShutdownTimeout, "Grace period for in-flight requests on shutdown")

	for key, flag := range map[string]string{
		config.KeyHost:            "host",
		config.KeyPort:            "port",
		config.KeyLogLevel:        "log-level",
		config.KeyShutdownTimeout: "shutdown-timeout",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	return cmd
}

// serve runs the server until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config) error {
	applog.SetLevel(cfg.Level())
	applog.LogInfo(ctx, "starting greeting server",
		zap.String("version", Version),
		zap.String("addr", cfg.Addr()),
		zap.String("logLevel", cfg.Level().String()),
	)

	srv := server.New(cfg, greetingsvc.New(greetingsvc.NewCounter()), server.WithVersion(Version))
	return srv.Run(ctx)
}
