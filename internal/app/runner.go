// Package app wires configuration, logging and the process entrypoints behind
// a cobra command tree.
package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/loanify/agent/internal/config"
	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr}
}

type runtimeState struct {
	runner    *Runner
	flags     config.GlobalFlags
	logFormat string
	logLevel  string
	settings  config.Settings
	log       *logrus.Logger
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(r.stderr, "Error: %v\n", err)
		code := agenterr.ExitCode(err)
		if code == 0 {
			code = int(agenterr.CodeInternal)
		}
		return code
	}
	return 0
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Conversational DeFi agent, gateway and wallet executor",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return agenterr.Wrap(agenterr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.log = s.newLogger()
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return agenterr.Wrap(agenterr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().IntVar(&s.flags.Port, "port", 0, "Listen port")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Upstream request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", 0, "Retries per upstream request")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "Base chain RPC endpoint")
	cmd.PersistentFlags().StringVar(&s.logFormat, "log-format", "", "Log format (text|json)")
	cmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(s.newServeCommand())
	cmd.AddCommand(s.newGatewayCommand())
	cmd.AddCommand(s.newWalletCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (s *runtimeState) newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(s.runner.stderr)

	format := strings.ToLower(strings.TrimSpace(s.logFormat))
	if format == "" {
		format = strings.ToLower(os.Getenv("LOG_FORMAT"))
	}
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := strings.ToLower(strings.TrimSpace(s.logLevel))
	if level == "" {
		level = strings.ToLower(os.Getenv("LOG_LEVEL"))
	}
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}
