package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plexaddons/versioncheck/internal/checker"
	"github.com/plexaddons/versioncheck/internal/config"
	"github.com/plexaddons/versioncheck/internal/localversion"
	"github.com/plexaddons/versioncheck/internal/logger"
	uicheck "github.com/plexaddons/versioncheck/internal/ui/check"
	"github.com/plexaddons/versioncheck/internal/ui/status"
)

var errOutdated = errors.New("addon is outdated")

var (
	checkDir     string
	checkStartup bool
	checkStrict  bool
	checkPlain   bool
)

var checkCmd = &cobra.Command{
	Use:   "check <addon> [current-version]",
	Short: "Check an addon against the version registry",
	Long: `Fetch the version registry and compare an addon's installed version
against the latest published one.

When the current version is omitted it is read from package.json in --dir,
falling back to the highest version tag of the git repository.

A failed check is reported but never fatal unless --strict is set.

Examples:
  plexaddons check Tickets 1.0.0
  plexaddons check Tickets --dir ./addons/tickets
  plexaddons check Tickets 1.0.0 --output json
  plexaddons check Tickets 1.0.0 --strict   # exit 1 when outdated`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addonName := args[0]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if checkStartup && !cfg.CheckOnStartup {
			logger.Debug("Startup check disabled", "addon", addonName)
			return nil
		}

		currentVersion, err := resolveCurrentVersion(args)
		if err != nil {
			return err
		}

		c, err := checker.New(addonName, currentVersion,
			checker.WithRepositoryURL(cfg.RepositoryURL),
			checker.WithTimeout(cfg.Timeout),
			checker.WithRetries(cfg.Retries),
			checker.WithCheckOnStartup(cfg.CheckOnStartup),
			checker.WithLogger(logger.Log),
		)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var result checker.Result
		if cfg.Output == config.OutputText && !checkPlain && isTerminal(out) {
			result, err = runInteractiveCheck(cmd.Context(), c, addonName)
			if err != nil {
				return err
			}
		} else {
			result = c.CheckForUpdates(cmd.Context())
			if err := writeResult(out, result, cfg.Output); err != nil {
				return err
			}
		}

		if checkStrict {
			return strictError(result)
		}
		return nil
	},
}

func resolveCurrentVersion(args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}

	version, source, err := localversion.Resolve(checkDir)
	if err != nil {
		return "", fmt.Errorf("current version not given and could not be discovered: %w", err)
	}
	logger.Debug("Discovered current version", "version", version, "source", source, "dir", checkDir)
	return version, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func runInteractiveCheck(ctx context.Context, c *checker.Checker, addonName string) (checker.Result, error) {
	m := uicheck.NewModel(ctx, c, addonName)

	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return checker.Result{}, err
	}

	fm := finalModel.(uicheck.Model)
	if !fm.IsDone() {
		return checker.Result{}, errors.New("check cancelled")
	}
	return fm.GetResult(), nil
}

// writeResult prints a result in the requested output format
func writeResult(w io.Writer, r checker.Result, format string) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(r)

	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()

	default:
		if _, err := fmt.Fprintln(w, status.FormatStatusLine(r)); err != nil {
			return err
		}
		if details := status.FormatUpdateDetails(r); details != "" {
			if _, err := fmt.Fprintf(w, "\n%s", details); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "\n%s", status.FormatFollowUp(r))
		return err
	}
}

// strictError turns a failed or outdated check into a command error.
// Development builds pass.
func strictError(r checker.Result) error {
	if !r.Success {
		return fmt.Errorf("version check failed: %s", r.Error)
	}
	if r.IsOutdated {
		return fmt.Errorf("%w: %s %s < %s", errOutdated, r.Addon,
			status.FormatVersion(r.Current), status.FormatVersion(r.Latest))
	}
	return nil
}

func init() {
	checkCmd.Flags().String(config.KeyRepositoryURL, "", "Version registry URL")
	checkCmd.Flags().String(config.KeyTimeout, config.DefaultTimeout.String(), "Per-attempt timeout (duration or milliseconds)")
	checkCmd.Flags().Int(config.KeyRetries, config.DefaultRetries, "Total number of fetch attempts")
	checkCmd.Flags().StringP(config.KeyOutput, "o", config.OutputText, "Output format: text, json, yaml")
	checkCmd.Flags().StringVar(&checkDir, "dir", ".", "Directory used to discover the current version")
	checkCmd.Flags().BoolVar(&checkStartup, "startup", false, "Honor check-on-startup and skip silently when it is disabled")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit non-zero when the check fails or the addon is outdated")
	checkCmd.Flags().BoolVar(&checkPlain, "plain", false, "Disable the interactive spinner")

	rootCmd.AddCommand(checkCmd)
}
