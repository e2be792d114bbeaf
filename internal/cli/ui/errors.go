package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ SPECIFICATION NOT FOUND: petclinic.Onwer
//	   Cannot find specification 'petclinic.Onwer'.
//
//	   Did you mean: petclinic.Owner?
//
//	   → See all specifications: metamodel specs
//	   → Get help: metamodel spec --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	// Determine colors and symbol based on level
	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelError:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	}

	// Disable colors if requested
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	// Header line with context
	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	// Problem description with indentation
	if opts.Problem != "" && opts.Context != "" {
		bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
	}

	// Consequence (if provided)
	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	// Suggestions
	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	// Help commands
	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// SpecNotFoundError creates a standardized specification not found error
func SpecNotFoundError(name string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "SPECIFICATION NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find specification '%s'.", name),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all specifications: metamodel specs",
			"Get help: metamodel spec --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// MemberNotFoundError creates a standardized member not found error
func MemberNotFoundError(spec, member string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "MEMBER NOT FOUND",
		Problem:     fmt.Sprintf("Specification '%s' has no member '%s'.", spec, member),
		Suggestions: suggestions,
		HelpCommands: []string{
			fmt.Sprintf("See its members: metamodel spec %s", spec),
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ValidationError lists the failures of an invalid metamodel, numbered
func ValidationError(failures []string, noColor bool) string {
	var b strings.Builder
	for i, f := range failures {
		fmt.Fprintf(&b, "%d. %s\n   ", i+1, f)
	}
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "METAMODEL INVALID",
		Problem:     fmt.Sprintf("%d validation failure(s).", len(failures)),
		Consequence: strings.TrimRight(b.String(), " \n"),
		HelpCommands: []string{
			"Relax checks: see the validation section of metamodel.yaml",
			"Get help: metamodel validate --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ExportError creates a standardized export error
func ExportError(target string, err error, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "EXPORT FAILED",
		Problem:     fmt.Sprintf("Cannot export snapshot to %s.", target),
		Consequence: err.Error(),
		HelpCommands: []string{
			"Write to a file instead: metamodel export --format json -o metamodel.json",
			"Get help: metamodel export --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONFIGURATION ERROR",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"View config: cat metamodel.yaml",
			"Get help: metamodel --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// Warning creates a standardized warning message
func Warning(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	}
	return FormatError(opts)
}
