// Command vitals-dashboard shows one patient's bedside telemetry as it
// arrives and lets staff step back through earlier samples.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/config"
	"github.com/sweeney/vitals-dashboard/internal/logger"
)

// Set by the linker at build time.
var version = "dev"

const serviceName = "vitals-dashboard"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is resolved.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Live and historical bedside vitals dashboard.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("patient", "", "Patient identifier")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: json or console")
	mustBind(a.v, "config", flags.Lookup("config"))
	mustBind(a.v, "patient", flags.Lookup("patient"))
	mustBind(a.v, "log.level", flags.Lookup("log-level"))
	mustBind(a.v, "log.format", flags.Lookup("log-format"))

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newSeedCmd(a))
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	config.Prepare(a.v, a.v.GetString("config"))
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = log.With(zap.String("patient", cfg.Patient))
	return nil
}
