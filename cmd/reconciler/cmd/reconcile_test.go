package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name         string
		filePath     string
		wantCategory errors.ErrorCategory
	}{
		{name: "valid file", filePath: validFile},
		{name: "empty path", filePath: "", wantCategory: errors.CategoryValidation},
		{name: "non-existent file", filePath: "/non/existent/file.csv", wantCategory: errors.CategoryFile},
		{name: "directory instead of file", filePath: tmpDir, wantCategory: errors.CategoryFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "statement file")

			if tt.wantCategory == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.HasCategory(err, tt.wantCategory) {
				t.Errorf("expected %s error, got: %v", tt.wantCategory, err)
			}
		})
	}
}

func TestRequireFlag(t *testing.T) {
	if err := requireFlag("tenant", "t1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := requireFlag("tenant", "   ")
	if !errors.HasCategory(err, errors.CategoryValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "tenant") {
		t.Errorf("expected error to name the flag, got: %v", err)
	}
}

func TestValidateReconcileFlags(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name          string
		tenant        string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name:   "console to stdout",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "console")
			},
		},
		{
			name:   "json to file",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "json")
				viper.Set("output-file", filepath.Join(tmpDir, "out.json"))
			},
		},
		{
			name:   "format is case insensitive",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "CSV")
			},
		},
		{
			name:   "missing tenant",
			tenant: "",
			setupFlags: func() {
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "tenant",
		},
		{
			name:   "invalid output format",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "xml")
			},
			expectError:   true,
			errorContains: "output-format",
		},
		{
			name:   "xlsx needs a file",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "xlsx")
			},
			expectError:   true,
			errorContains: "output-file",
		},
		{
			name:   "output directory must exist",
			tenant: "t1",
			setupFlags: func() {
				viper.Set("output-format", "xlsx")
				viper.Set("output-file", filepath.Join(tmpDir, "missing", "out.xlsx"))
			},
			expectError:   true,
			errorContains: "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			reconcileTenant = tt.tenant
			tt.setupFlags()

			err := validateReconcileFlags(&cobra.Command{}, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateImportFlags(t *testing.T) {
	tmpDir := t.TempDir()
	statement := filepath.Join(tmpDir, "statement.csv")
	if err := os.WriteFile(statement, []byte("external_id,posted_at,amount,currency,description\n"), 0644); err != nil {
		t.Fatalf("failed to create statement: %v", err)
	}

	tests := []struct {
		name         string
		tenant       string
		file         string
		format       string
		wantCategory errors.ErrorCategory
	}{
		{name: "valid", tenant: "t1", file: statement, format: "standard"},
		{name: "european format", tenant: "t1", file: statement, format: "european"},
		{name: "missing tenant", tenant: "", file: statement, format: "standard", wantCategory: errors.CategoryValidation},
		{name: "missing file", tenant: "t1", file: filepath.Join(tmpDir, "nope.csv"), format: "standard", wantCategory: errors.CategoryFile},
		{name: "unknown format", tenant: "t1", file: statement, format: "ofx", wantCategory: errors.CategoryConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importTenant, importFile, importFormat = tt.tenant, tt.file, tt.format

			err := validateImportFlags(&cobra.Command{}, nil)

			if tt.wantCategory == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.HasCategory(err, tt.wantCategory) {
				t.Errorf("expected %s error, got: %v", tt.wantCategory, err)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "scorer", "import", "reconcile", "confirm", "explain", "migrate", "sample", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{reconcileCmd, []string{"tenant", "output-format", "output-file"}},
		{importCmd, []string{"tenant", "file", "format", "idempotency-key", "skip-invalid"}},
		{confirmCmd, []string{"tenant", "match"}},
		{explainCmd, []string{"tenant", "invoice", "transaction", "json"}},
		{serveCmd, []string{"addr"}},
		{scorerCmd, []string{"addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			for _, name := range tt.flags {
				if tt.cmd.Flags().Lookup(name) == nil {
					t.Errorf("flag '%s' not found", name)
				}
			}
		})
	}
}

func TestReconcileCommandHelp(t *testing.T) {
	var helpOutput bytes.Buffer
	reconcileCmd.SetOut(&helpOutput)
	t.Cleanup(func() { reconcileCmd.SetOut(nil) })
	reconcileCmd.Help()

	helpText := helpOutput.String()
	for _, section := range []string{"Usage:", "Examples:", "Flags:", "--tenant", "--output-format"} {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}
