package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "SPECIFICATION NOT FOUND",
				Problem: "Cannot find specification 'petclinic.Owner'.",
			},
			contains: []string{
				"❌",
				"SPECIFICATION NOT FOUND",
				"Cannot find specification 'petclinic.Owner'.",
			},
		},
		{
			name: "error with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "SPECIFICATION NOT FOUND",
				Problem:     "Cannot find specification 'Onwer'.",
				Suggestions: []string{"petclinic.Owner", "petclinic.Pet"},
			},
			contains: []string{"Did you mean: petclinic.Owner, petclinic.Pet?"},
		},
		{
			name: "error with help commands",
			opts: ErrorOptions{
				Level:        ErrorLevelError,
				Context:      "EXPORT FAILED",
				Problem:      "Connection refused",
				HelpCommands: []string{"Get help: metamodel export --help"},
			},
			contains: []string{"→ Get help: metamodel export --help"},
		},
		{
			name: "warning without context",
			opts: ErrorOptions{
				Level:       ErrorLevelWarning,
				Problem:     "No layout directory configured",
				Consequence: "Layout facets are disabled",
			},
			contains: []string{"⚠️ No layout directory configured", "Layout facets are disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			result := FormatError(tt.opts)
			for _, expected := range tt.contains {
				assert.Contains(t, result, expected)
			}
		})
	}
}

func TestSpecNotFoundError(t *testing.T) {
	result := SpecNotFoundError("petclinic.Onwer", []string{"petclinic.Owner"}, true)

	assert.Contains(t, result, "SPECIFICATION NOT FOUND")
	assert.Contains(t, result, "Cannot find specification 'petclinic.Onwer'.")
	assert.Contains(t, result, "Did you mean: petclinic.Owner?")
	assert.Contains(t, result, "See all specifications: metamodel specs")
}

func TestMemberNotFoundError(t *testing.T) {
	result := MemberNotFoundError("petclinic.Owner", "Pest", []string{"Pets"}, true)

	assert.Contains(t, result, "Specification 'petclinic.Owner' has no member 'Pest'.")
	assert.Contains(t, result, "Did you mean: Pets?")
	assert.Contains(t, result, "metamodel spec petclinic.Owner")
}

func TestValidationError(t *testing.T) {
	result := ValidationError([]string{
		"petclinic.Owner#Pets: collection is not registered",
		"petclinic.Pet: missing title",
	}, true)

	assert.Contains(t, result, "METAMODEL INVALID")
	assert.Contains(t, result, "2 validation failure(s).")
	assert.Contains(t, result, "1. petclinic.Owner#Pets: collection is not registered")
	assert.Contains(t, result, "2. petclinic.Pet: missing title")
}

func TestExportError(t *testing.T) {
	result := ExportError("redis", errors.New("dial tcp: connection refused"), true)

	assert.Contains(t, result, "EXPORT FAILED")
	assert.Contains(t, result, "Cannot export snapshot to redis.")
	assert.Contains(t, result, "dial tcp: connection refused")
}

func TestConfigError(t *testing.T) {
	result := ConfigError("Invalid YAML syntax", []string{"Check indentation"}, true)

	assert.Contains(t, result, "CONFIGURATION ERROR")
	assert.Contains(t, result, "Did you mean: Check indentation?")
	assert.Contains(t, result, "cat metamodel.yaml")
}

func TestWarning(t *testing.T) {
	result := Warning("Deprecated prefix", []string{"Use Disable"}, true)

	assert.Contains(t, result, "⚠️")
	assert.Contains(t, result, "Deprecated prefix")
}

func TestWriteErrorAndSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Level: ErrorLevelError, Context: "TEST ERROR", Problem: "This is a test", NoColor: true})
	assert.Contains(t, buf.String(), "TEST ERROR")

	buf.Reset()
	WriteSuccess(&buf, "Metamodel is valid", true)
	assert.Equal(t, "✓ Metamodel is valid\n", buf.String())
}
