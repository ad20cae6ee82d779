package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"svcmon/internal/agent"
	"svcmon/internal/checker"
	"svcmon/internal/config"
	"svcmon/internal/reporter"
	"svcmon/pkg/logx"
	"svcmon/pkg/systemdmanager"
)

const defaultConfigPath = "/etc/svcmon/config.json"

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
}

// NewRootCmd wires the cobra root command. Without a subcommand it behaves
// like `run`, and a single positional argument is taken as the config path.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "svcmon [config]",
		Short: "Report systemd service health to a monitoring endpoint",
		Long: "svcmon checks the configured systemd units over D-Bus and sends one status\n" +
			"report (\"ok\" or a description of every failing unit) to monitor_url.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.configPath = args[0]
			}
			return runOnce(cmd.Context(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to config (json or yaml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "optional dotenv file with SVCMON_* overrides")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check services once and report the status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
}

func newCheckCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check services and print the status without reporting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			findings, err := rt.checker.CheckAll(cmd.Context(), rt.cfg.Services)
			if err != nil {
				return err
			}
			printFindings(cmd.OutOrStdout(), findings)
			return nil
		},
	}
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Check and report on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			spec := rt.cfg.Schedule
			if schedule != "" {
				spec = schedule
			}
			if spec == "" {
				return fmt.Errorf("serve: no schedule (set \"schedule\" in the config or pass --schedule)")
			}
			return rt.agent.Serve(cmd.Context(), spec)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec overriding the config (e.g. \"@every 5m\")")
	return cmd
}

// runOnce performs a single pass. The pass is detached from ctx so an
// interrupt cannot cut the report's retry loop short.
func runOnce(ctx context.Context, opts *globalOptions) error {
	rt, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return rt.agent.Run(context.WithoutCancel(ctx))
}

type app struct {
	cfg     *config.Config
	logs    *logx.Service
	log     logx.Logger
	units   *systemdmanager.ServiceManager
	checker *checker.Checker
	agent   *agent.Agent
}

// bootstrap loads the config first so configuration errors surface before
// any D-Bus connection is attempted.
func bootstrap(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:    cfg.Logging.Level,
		Console:  cfg.Logging.ConsoleEnabled(),
		Journald: cfg.Logging.Journald,
		File:     logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	units, err := systemdmanager.NewServiceManagerContext(ctx, cfg.DBusCallTimeout())
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	chk := checker.New(units, log.With(logx.String("component", "checker")))
	rep := reporter.New(
		reporter.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		reporter.WithDeadline(cfg.ReportDeadline()),
		reporter.WithLogger(log.With(logx.String("component", "reporter"))),
	)
	a, err := agent.New(agent.Options{
		Services:   cfg.Services,
		MonitorURL: cfg.MonitorURL,
		Hostname:   cfg.Hostname,
	}, chk, rep, log)
	if err != nil {
		_ = units.Close()
		_ = logs.Close()
		return nil, err
	}

	return &app{cfg: cfg, logs: logs, log: log, units: units, checker: chk, agent: a}, nil
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	return config.Load(opts.configPath)
}

func (rt *app) Close() {
	if rt.units != nil {
		if err := rt.units.Close(); err != nil {
			rt.log.Debug("closing systemd connection", logx.Err(err))
		}
	}
	if rt.logs != nil {
		_ = rt.logs.Close()
	}
}

func printFindings(w io.Writer, findings []checker.Finding) {
	for _, f := range findings {
		fmt.Fprintf(w, "%-12s %s\n", f.Kind, f.Service)
	}
	status := checker.Aggregate(findings)
	if status == "" {
		status = reporter.HealthyStatus
	}
	fmt.Fprintf(w, "status: %s\n", status)
}
