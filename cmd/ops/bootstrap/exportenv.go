package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ssmToEnvMapping maps SSM category/key paths to the environment variable
// names consumed by the service configuration (envconfig tags). Every
// bootstrap inventory step must have an entry here so that --export-env
// produces a complete .env file.
var ssmToEnvMapping = map[string]string{
	"database/url":          "DATABASE_URL",
	"push/fcm_server_key":   "FCM_SERVER_KEY",
	"rtc/signing_secret":    "RTC_SIGNING_SECRET",
	"security/api_key_hash": "API_KEY_HASH",
	"queue/events_url":      "SQS_EVENTS",
}

// localDevDefaults holds environment variables required by the service
// configuration that are NOT sourced from SSM. These are appended to the
// exported .env file when IncludeLocalDefaults is set, pointing local
// development at LocalStack.
//
// Vars that appear in ssmToEnvMapping must not be repeated here; the SSM
// value always wins.
var localDevDefaults = map[string]string{
	"APP_ENV":          "local",
	"LOG_LEVEL":        "debug",
	"PORT":             "8080",
	"AWS_REGION":       "us-east-1",
	"AWS_ENDPOINT_URL": "http://localhost:4566",
}

// ExportEnvConfig holds the inputs for ExportEnvFile.
type ExportEnvConfig struct {
	// OutputPath is where the .env file is written. Parent directories
	// are created if missing.
	OutputPath string

	// Environment is the target environment whose SSM parameters are read.
	Environment string

	// SSM is the parameter store manager used to read values back.
	SSM *SSMManager

	// Stderr receives progress and summary output.
	Stderr io.Writer

	// IncludeLocalDefaults appends the localDevDefaults section to the
	// exported file.
	IncludeLocalDefaults bool
}

// ExportEnvFile reads the bootstrap parameters back from SSM and writes them
// to a .env file for local development. SecureString parameters are decrypted.
//
// Parameters missing from SSM (e.g., skipped during bootstrap) are omitted
// from the file with a warning. The export fails only if no parameter could
// be read at all.
//
// The file is written with 0600 permissions since it contains decrypted
// secrets.
func ExportEnvFile(ctx context.Context, cfg ExportEnvConfig) error {
	var sb strings.Builder

	// Header.
	sb.WriteString("# Auto-generated by bootstrap --export-env\n")
	sb.WriteString(fmt.Sprintf("# Environment: %s\n", cfg.Environment))
	sb.WriteString(fmt.Sprintf("# Generated:   %s\n", time.Now().UTC().Format(time.RFC3339)))
	sb.WriteString("#\n")
	sb.WriteString("# SECURITY WARNING: This file contains decrypted secrets.\n")
	sb.WriteString("# Do not commit it to version control.\n")
	sb.WriteString("\n")

	// Read SSM-sourced values in a stable order.
	ssmKeys := make([]string, 0, len(ssmToEnvMapping))
	for key := range ssmToEnvMapping {
		ssmKeys = append(ssmKeys, key)
	}
	sort.Strings(ssmKeys)

	written := 0
	writtenVars := make(map[string]bool)

	for _, ssmKey := range ssmKeys {
		envVar := ssmToEnvMapping[ssmKey]
		path := cfg.SSM.SSMPath(ssmKey)

		value, err := cfg.SSM.GetParameterValue(ctx, path, true)
		if err != nil {
			fmt.Fprintf(cfg.Stderr, "  Warning: skipping %s (%s): %v\n", envVar, path, err)
			continue
		}

		sb.WriteString(formatEnvLine(envVar, value))
		sb.WriteString("\n")
		writtenVars[envVar] = true
		written++
	}

	if written == 0 {
		return fmt.Errorf("exporting .env file: no parameters could be read from SSM for environment %q", cfg.Environment)
	}

	// Append local development defaults, skipping anything already written
	// from SSM.
	if cfg.IncludeLocalDefaults {
		sb.WriteString("\n")
		sb.WriteString("# --- Local Development Defaults ---\n")

		defaultKeys := make([]string, 0, len(localDevDefaults))
		for key := range localDevDefaults {
			defaultKeys = append(defaultKeys, key)
		}
		sort.Strings(defaultKeys)

		for _, envVar := range defaultKeys {
			if writtenVars[envVar] {
				continue
			}
			sb.WriteString(formatEnvLine(envVar, localDevDefaults[envVar]))
			sb.WriteString("\n")
		}
	}

	// Create parent directories if the output path is nested.
	if dir := filepath.Dir(cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating directory for .env file: %w", err)
		}
	}

	// 0600: the file holds decrypted secrets.
	if err := os.WriteFile(cfg.OutputPath, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("writing .env file to %s: %w", cfg.OutputPath, err)
	}

	fmt.Fprintf(cfg.Stderr, "\n")
	fmt.Fprintf(cfg.Stderr, "  Environment file exported: %s\n", cfg.OutputPath)
	fmt.Fprintf(cfg.Stderr, "  Parameters written: %d\n", written)
	fmt.Fprintf(cfg.Stderr, "  File permissions: 0600 (owner read/write only)\n")

	return nil
}

// envValueSafe matches values that can be written unquoted in a .env file.
// Anything else (spaces, quotes, comment markers, shell-significant
// characters) gets double-quoted with escaping.
func envValueSafe(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune("-_./:@+=,?&%", r):
		default:
			return false
		}
	}
	return true
}

// formatEnvLine renders a single KEY=value line for the .env file. Values
// containing characters that are unsafe unquoted (spaces, quotes, '#', '$',
// newlines, backslashes) are double-quoted with backslash escaping. Empty
// values are rendered as KEY="".
func formatEnvLine(key, value string) string {
	if envValueSafe(value) {
		return key + "=" + value
	}

	escaped := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
	).Replace(value)

	return key + `="` + escaped + `"`
}
