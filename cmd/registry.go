package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plexaddons/versioncheck/internal/config"
	"github.com/plexaddons/versioncheck/internal/logger"
	"github.com/plexaddons/versioncheck/internal/registry"
	"github.com/plexaddons/versioncheck/internal/ui/status"
	"github.com/plexaddons/versioncheck/internal/ui/styles"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the version registry",
	Long:  `Commands for reading the published PlexAddons version registry.`,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every addon in the registry",
	Long: `Fetch the version registry and list every addon with its latest
version, release date and advisories.

Examples:
  plexaddons registry list
  plexaddons registry list --output yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fetcher := registry.NewFetcher("CLI", cfg.Timeout, cfg.Retries, registry.WithLogger(logger.Log))
		manifest, err := fetcher.Fetch(cmd.Context(), cfg.RepositoryURL)
		if err != nil {
			return err
		}

		return writeRegistry(cmd.OutOrStdout(), manifest, cfg.Output, time.Now())
	},
}

// writeRegistry prints the manifest; now anchors the relative age of
// lastUpdated
func writeRegistry(w io.Writer, m *registry.Manifest, format string, now time.Time) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(m)

	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	}

	names := m.Names()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(w, "No addons in registry")
	} else {
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rec, err := m.Lookup(name)
			if err != nil {
				rows = append(rows, []string{name, styles.ErrorText.Render("invalid entry"), "-", "-", "-"})
				continue
			}
			rows = append(rows, []string{
				name,
				status.FormatVersion(rec.Version),
				orDash(rec.ReleaseDate),
				orDash(rec.Author),
				advisories(rec),
			})
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Name", "Version", "Released", "Author", "Flags"})
		table.SetAutoWrapText(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		table.SetHeaderLine(false)
		table.SetBorder(false)
		table.SetAutoFormatHeaders(true)
		table.SetCenterSeparator("")
		table.SetColumnSeparator("")
		table.SetRowSeparator("")
		table.SetTablePadding("  ")
		table.SetNoWhiteSpace(true)

		table.AppendBulk(rows)
		table.Render()

		_, _ = fmt.Fprintf(w, "\n%d addon(s) in registry\n", len(names))
	}

	if m.Repository != "" {
		_, _ = fmt.Fprintf(w, "Repository: %s\n", m.Repository)
	}
	if support := m.Support(); support != "" {
		_, _ = fmt.Fprintf(w, "Support: %s\n", support)
	}
	if m.LastUpdated != "" {
		line := m.LastUpdated
		if t, ok := parseTimestamp(m.LastUpdated); ok {
			line += " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
		}
		_, _ = fmt.Fprintf(w, "Last updated: %s\n", line)
	}

	return nil
}

func advisories(rec *registry.AddonRecord) string {
	var flags []string
	if rec.Urgent {
		flags = append(flags, styles.UrgentBadge.Render("urgent"))
	}
	if rec.Breaking {
		flags = append(flags, styles.BreakingBadge.Render("breaking"))
	}
	if rec.External {
		flags = append(flags, styles.MutedText.Render("free"))
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// parseTimestamp accepts the formats the registry has used for lastUpdated
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func init() {
	registryListCmd.Flags().String(config.KeyRepositoryURL, "", "Version registry URL")
	registryListCmd.Flags().String(config.KeyTimeout, config.DefaultTimeout.String(), "Per-attempt timeout (duration or milliseconds)")
	registryListCmd.Flags().Int(config.KeyRetries, config.DefaultRetries, "Total number of fetch attempts")
	registryListCmd.Flags().StringP(config.KeyOutput, "o", config.OutputText, "Output format: text, json, yaml")

	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
