// Package cmd implements the nbfc-linux command line: the daemon itself
// as the root command, plus ec/curve diagnostic subcommands.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/control"
	"github.com/Boom-Hacker/nbfc-linux/internal/daemon"
	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/Boom-Hacker/nbfc-linux/internal/metrics"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultServiceConfigPath = "/etc/nbfc/nbfc.json"
	defaultModelConfigPath   = "/etc/nbfc/model.json"
	defaultSocketPath        = "/var/run/nbfc_service.socket"
	defaultPersistencePath   = "/var/lib/nbfc/warmstart.db"
)

var (
	flagConfig      string
	flagModel       string
	flagSocket      string
	flagReadOnly    bool
	flagVerbose     bool
	flagNoColor     bool
	flagNoStyle     bool
	flagECType      string
	flagMetricsAddr string
	flagNoPersist   bool
)

var rootCmd = &cobra.Command{
	Use:   "nbfc-linux",
	Short: "A daemon to control notebook fans via the Embedded Controller",
	Long: `nbfc-linux drives fan speeds from temperature thresholds defined in a
model configuration, exposing a UNIX socket control protocol compatible
with nbfc-client.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to the service config JSON file (default: search ., $HOME, /etc/nbfc/)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", defaultModelConfigPath, "path to the selected model config JSON file")
	rootCmd.PersistentFlags().StringVarP(&flagSocket, "socket", "s", defaultSocketPath, "path to the control socket")
	rootCmd.PersistentFlags().BoolVar(&flagReadOnly, "read-only", false, "never write to the Embedded Controller")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable terminal coloration")
	rootCmd.PersistentFlags().BoolVar(&flagNoStyle, "no-style", false, "disable terminal styling")
	rootCmd.PersistentFlags().StringVar(&flagECType, "ec-type", "", "force a specific EmbeddedControllerType instead of auto-detecting")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "if set, serve prometheus metrics on this address (e.g. 127.0.0.1:9930)")
	rootCmd.Flags().BoolVar(&flagNoPersist, "no-persist", false, "don't warm-start or persist the temperature filter across restarts")

	rootCmd.AddCommand(ecCmd)
	rootCmd.AddCommand(curveCmd)

	cobra.OnInitialize(func() {
		viper.SetEnvPrefix("NBFC")
		viper.AutomaticEnv()
	})
}

// Execute runs the root command; called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupUI() {
	ui.SetDebug(flagVerbose)
	ui.SetStyling(!flagNoStyle && !flagNoColor)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	setupUI()

	opts := daemon.Options{
		ServiceConfigPath: configuration.ResolveServiceConfigPath(flagConfig, "nbfc.json", defaultServiceConfigPath),
		ModelConfigPath:   flagModel,
		ReadOnly:          flagReadOnly,
		Debug:             flagVerbose,
	}
	if flagECType != "" {
		t, err := ec.ParseEmbeddedControllerType(flagECType)
		if err != nil {
			return err
		}
		opts.ForcedECType = t
	}
	if !flagNoPersist {
		opts.PersistencePath = defaultPersistencePath
	}

	var m *metrics.Metrics
	if flagMetricsAddr != "" {
		m = metrics.New()
		opts.OnTick = m.Observe
		opts.OnRegisterWriteError = func(error) { m.IncRegisterWriteError() }
	}

	svc := daemon.New(opts)
	if err := svc.Init(); err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group

	{
		stop := make(chan struct{})
		g.Add(func() error {
			return svc.Run(stop)
		}, func(err error) {
			close(stop)
		})
	}

	{
		srv := control.New(flagSocket, svc)
		if err := srv.Listen(); err != nil {
			return fmt.Errorf("starting control server: %w", err)
		}
		stop := make(chan struct{})
		g.Add(func() error {
			return srv.Run(stop)
		}, func(err error) {
			close(stop)
			_ = srv.Close()
		})
	}

	if m != nil {
		httpSrv := &http.Server{Addr: flagMetricsAddr, Handler: m.Handler()}
		g.Add(func() error {
			ui.Info("Serving metrics on %s", flagMetricsAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}, func(err error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		})
	}

	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case s := <-sig:
				ui.Info("Received %s, shutting down", s)
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	return g.Run()
}
