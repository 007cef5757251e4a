// Package status renders version check results for terminals.
package status

import (
	"fmt"
	"strings"

	"github.com/plexaddons/versioncheck/internal/checker"
	"github.com/plexaddons/versioncheck/internal/ui/styles"
)

// Status line markers. A rendered line carries exactly one of them.
const (
	MarkerWarn   = "[WARN]"
	MarkerUpdate = "[UPDATE]"
	MarkerOK     = "[OK]"
	MarkerDev    = "[DEV]"
	MarkerInfo   = "[INFO]"

	MarkerUrgent   = "[URGENT]"
	MarkerBreaking = "[BREAKING]"
)

const indent = "   "

// FormatVersion adds the "v" prefix used for display, never doubling it
func FormatVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// FormatStatusLine returns a one-line summary of a check result
func FormatStatusLine(r checker.Result) string {
	if !r.Success {
		return fmt.Sprintf("%s%s Version Check: %s",
			indent,
			styles.WarningText.Render(MarkerWarn),
			styles.WarningText.Render(fmt.Sprintf("Failed (%s)", r.Error)))
	}

	switch r.Status() {
	case checker.StatusOutdated:
		var badges string
		if r.Urgent {
			badges += " " + styles.UrgentBadge.Render(MarkerUrgent)
		}
		if r.Breaking {
			badges += " " + styles.BreakingBadge.Render(MarkerBreaking)
		}
		return fmt.Sprintf("%s%s Version Check: %s (%s → %s)%s",
			indent,
			styles.ErrorText.Render(MarkerUpdate),
			styles.ErrorText.Render("Outdated"),
			FormatVersion(r.Current),
			FormatVersion(r.Latest),
			badges)

	case checker.StatusCurrent:
		return fmt.Sprintf("%s%s Version Check: %s (%s)",
			indent,
			styles.SuccessText.Render(MarkerOK),
			styles.SuccessText.Render("Up to date"),
			FormatVersion(r.Current))

	case checker.StatusNewer:
		return fmt.Sprintf("%s%s Version Check: %s (%s > %s)",
			indent,
			styles.InfoText.Render(MarkerDev),
			styles.InfoText.Render("Development version"),
			FormatVersion(r.Current),
			FormatVersion(r.Latest))
	}

	return fmt.Sprintf("%s%s Version Check: %s",
		indent,
		styles.MutedText.Render(MarkerInfo),
		styles.MutedText.Render("Unknown status"))
}

// FormatUpdateDetails returns a multi-line description of an available
// update, or an empty string unless the result is a successful outdated check.
// Fields the registry did not provide are omitted.
func FormatUpdateDetails(r checker.Result) string {
	if !r.Success || !r.IsOutdated {
		return ""
	}

	source := "Paid Addon Update"
	if r.External {
		source = "Free Addon Update"
	}

	var b strings.Builder
	b.WriteString(styles.BoldText.Render(fmt.Sprintf("📦 %s Available for %s", source, r.Addon)))
	b.WriteString("\n")

	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s%-11s %s\n", indent, label+":", value)
	}

	line("Current", FormatVersion(r.Current))
	latest := FormatVersion(r.Latest)
	if r.ReleaseDate != "" {
		latest += " (" + r.ReleaseDate + ")"
	}
	line("Latest", latest)
	line("Author", r.Author)
	line("Changes", plainText(r.Description))

	if r.Urgent {
		b.WriteString(indent + styles.UrgentBadge.Render("⚠️  URGENT UPDATE RECOMMENDED") + "\n")
	}
	if r.Breaking {
		b.WriteString(indent + styles.BreakingBadge.Render("🔄 BREAKING CHANGES - Review before updating") + "\n")
	}

	line("Download", r.DownloadURL)
	line("Changelog", r.Changelog)
	line("Homepage", r.Homepage)
	line("Repository", r.Repository)
	line("Support", r.SupportContact)

	return b.String()
}

// FormatFollowUp returns the advice shown after the status line and
// details, ending with the registry's own information. Failed checks only
// get a note that the caller carries on.
func FormatFollowUp(r checker.Result) string {
	var b strings.Builder

	if !r.Success {
		b.WriteString(styles.FormatWarning("Continuing without update check..."))
		b.WriteString("\n")
		return b.String()
	}

	switch r.Status() {
	case checker.StatusOutdated:
		if r.Urgent {
			b.WriteString(styles.FormatError("CRITICAL: This is an urgent update! Please update as soon as possible."))
			b.WriteString("\n")
		}
		if r.Breaking {
			b.WriteString(styles.FormatWarning("WARNING: This update contains breaking changes! Please review the changelog before updating."))
			b.WriteString("\n")
		}
	case checker.StatusCurrent:
		b.WriteString(styles.FormatSuccess("You are running the latest version!"))
		b.WriteString("\n")
	case checker.StatusNewer:
		b.WriteString(styles.FormatInfo("You are running a development/unreleased version!"))
		b.WriteString("\n")
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(styles.Title.Render("Additional Info"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  - Repository: %s\n", orNA(r.Repository))
	fmt.Fprintf(&b, "  - Support: %s\n", orNA(r.SupportContact))
	fmt.Fprintf(&b, "  - Last Registry Update: %s\n", orNA(r.LastUpdated))

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
