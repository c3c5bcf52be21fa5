package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinkerbay/childminder"
)

var (
	configPath string

	runTimeout   string
	runShell     bool
	runDir       string
	runEnv       []string
	runIgnore    bool
	runStdoutCap int
	runStderrCap int
	runNoHistory bool

	streamStopTimeout string

	historyLimit int
)

var rootCmd = &cobra.Command{
	Use:   "childminder",
	Short: "Run and supervise child processes with bounded output",
	Long: `childminder runs commands with bounded output collection, records a
history of completed runs, and can supervise long-running processes
while streaming their output line by line.`,
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- cmd [args...]",
	Short: "Run a command once and print its collected output",
	Long: `Run a command to completion, print its stdout and stderr, and exit
with the command's exit code. Output is collected under a byte budget
that keeps the most recent bytes. Completed runs are recorded in the
history database unless --no-history is given.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		timeoutStr := runTimeout
		if timeoutStr == "" {
			timeoutStr = cfg.Timeout
		}
		timeout, err := duration(timeoutStr, 0)
		if err != nil {
			return err
		}

		var opts []childminder.RunOption
		if timeout > 0 {
			opts = append(opts, childminder.WithTimeout(timeout))
		}
		if runDir != "" {
			opts = append(opts, childminder.WithRunDir(runDir))
		}
		if len(runEnv) > 0 {
			opts = append(opts, childminder.WithRunEnv(append(os.Environ(), runEnv...)))
		}
		if runIgnore {
			opts = append(opts, childminder.WithIgnoreOutput())
		}
		if limit := pick(runStdoutCap, cfg.StdoutLimit); limit > 0 {
			opts = append(opts, childminder.WithStdoutLimit(limit))
		}
		if limit := pick(runStderrCap, cfg.StderrLimit); limit > 0 {
			opts = append(opts, childminder.WithStderrLimit(limit))
		}

		var log *childminder.RunLog
		if !runNoHistory {
			log, err = childminder.OpenRunLog(pickString(cfg.HistoryDB, defaultHistoryPath()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "childminder: history disabled: %v\n", err)
			} else {
				defer log.Close()
				opts = append(opts, childminder.WithHistory(log))
			}
		}

		ctx := cmd.Context()
		var res *childminder.Result
		if runShell {
			res, err = childminder.RunShell(ctx, shellLine(args), opts...)
		} else {
			res, err = childminder.Run(ctx, args[0], args[1:], opts...)
		}
		if err == nil {
			printOutput(res.Stdout, res.Stderr)
			return nil
		}

		var exitErr *childminder.ExitError
		if errors.As(err, &exitErr) {
			printOutput(exitErr.Stdout, exitErr.Stderr)
			if exitErr.Code > 0 {
				os.Exit(exitErr.Code)
			}
			// Signal-killed: conventional shell exit status is 128+n,
			// but the signal number is not tracked here; report failure.
			os.Exit(1)
		}
		var timeoutErr *childminder.TimeoutError
		if errors.As(err, &timeoutErr) {
			printOutput(timeoutErr.Stdout, timeoutErr.Stderr)
		}
		return err
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [flags] -- cmd [args...]",
	Short: "Supervise a command and stream its output line by line",
	Long: `Start a command under supervision and print each complete output line
prefixed with its stream. Interrupting childminder (Ctrl-C) sends the
child a graceful stop and waits for it to end.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		stopTimeout, err := duration(pickString(streamStopTimeout, cfg.StopTimeout), childminder.DefaultStopTimeout)
		if err != nil {
			return err
		}

		var opts []childminder.Option
		if len(args) > 1 {
			opts = append(opts, childminder.WithArgs(args[1:]...))
		}
		if runDir != "" {
			opts = append(opts, childminder.WithDir(runDir))
		}
		c, err := childminder.New(args[0], opts...)
		if err != nil {
			return err
		}

		c.On(childminder.EventStreamLine, func(payload any) {
			fmt.Println(payload.(string))
		})
		done := make(chan childminder.TerminationPayload, 1)
		c.On(childminder.EventExit, func(payload any) {
			done <- payload.(childminder.TerminationPayload)
		})

		// The child may never print; a short delay is enough to call it
		// started for streaming purposes.
		if err := c.Start(cmd.Context(),
			childminder.WithDetector(childminder.AfterDelay(50*time.Millisecond))); err != nil {
			return err
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(interrupt)

		select {
		case term := <-done:
			if term.Signal != "" {
				return fmt.Errorf("process was killed by %s", term.Signal)
			}
			if term.Code != 0 {
				os.Exit(term.Code)
			}
			return nil
		case <-interrupt:
			if err := c.Stop(nil, stopTimeout); err != nil {
				return err
			}
			return nil
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently recorded runs",
	Long:  `List the most recent runs from the history database, newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		log, err := childminder.OpenRunLog(pickString(cfg.HistoryDB, defaultHistoryPath()))
		if err != nil {
			return err
		}
		defer log.Close()

		records, err := log.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			outcome := fmt.Sprintf("exit %d", rec.ExitCode)
			if rec.Signal != "" {
				outcome = "killed by " + rec.Signal
			}
			line := rec.Command
			for _, arg := range rec.Args {
				line += " " + arg
			}
			fmt.Printf("%s  %-10s  %8s  %s\n",
				rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
				outcome,
				rec.Duration().Round(time.Millisecond),
				line,
			)
		}
		return nil
	},
}

func printOutput(stdout, stderr []byte) {
	if len(stdout) > 0 {
		os.Stdout.Write(stdout)
	}
	if len(stderr) > 0 {
		os.Stderr.Write(stderr)
	}
}

func shellLine(args []string) string {
	line := args[0]
	for _, arg := range args[1:] {
		line += " " + arg
	}
	return line
}

// pick returns the flag value when set, else the config value.
func pick(flag, file int) int {
	if flag > 0 {
		return flag
	}
	return file
}

func pickString(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/childminder/config.toml)")

	runCmd.Flags().StringVarP(&runTimeout, "timeout", "t", "", "Kill the command after this duration, e.g. 30s (default: none)")
	runCmd.Flags().BoolVar(&runShell, "shell", false, "Run the command line through sh -c")
	runCmd.Flags().StringVarP(&runDir, "dir", "C", "", "Working directory for the command")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Extra KEY=value environment entries (repeatable)")
	runCmd.Flags().BoolVar(&runIgnore, "ignore-output", false, "Discard output instead of collecting it")
	runCmd.Flags().IntVar(&runStdoutCap, "stdout-limit", 0, "Retain at most this many stdout bytes (default: 100 MiB)")
	runCmd.Flags().IntVar(&runStderrCap, "stderr-limit", 0, "Retain at most this many stderr bytes (default: 100 MiB)")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not record this run in the history database")

	streamCmd.Flags().StringVarP(&runDir, "dir", "C", "", "Working directory for the command")
	streamCmd.Flags().StringVar(&streamStopTimeout, "stop-timeout", "", "Graceful stop timeout on interrupt, e.g. 10s")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
