package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// setupConfig writes a bolt-backed config into a temp dir and returns its path.
func setupConfig(t *testing.T, policy string) string {
	t.Helper()
	dir := t.TempDir()
	content := "storage:\n" +
		"  driver: bolt\n" +
		"  dsn: " + filepath.Join(dir, "cli.bolt") + "\n" +
		"fields:\n" +
		"  system_field_policy: " + policy + "\n"
	path := filepath.Join(dir, "maintforms.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", cfg, "--actor", "tester"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var customID = regexp.MustCompile(`\((custom_[^)]+)\)`)

func TestVersion(t *testing.T) {
	out, err := run(t, "unused.yaml", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "maintforms dev") {
		t.Errorf("output = %q", out)
	}
}

func TestFieldsLifecycle(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	out, err := run(t, cfg, "fields", "add", "equipment",
		"--name", "warrantyMonths", "--label", "Warranty (months)", "--type", "number", "--min", "0")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	m := customID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("add output has no id: %q", out)
	}
	id := m[1]

	out, err = run(t, cfg, "fields", "list", "equipment")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "warrantyMonths") || !strings.Contains(out, "Equipment Name") {
		t.Errorf("list output = %q", out)
	}

	if _, err := run(t, cfg, "fields", "update", "equipment", id, "--label", "Warranty"); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err = run(t, cfg, "fields", "list", "equipment", "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var fields []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Order int    `json:"order"`
	}
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	last := fields[len(fields)-1]
	if last.ID != id || last.Label != "Warranty" || last.Order != 11 {
		t.Errorf("custom field = %+v, want id %s label Warranty order 11", last, id)
	}

	out, err = run(t, cfg, "fields", "validate", "equipment", id, "--", "-5")
	if !errors.Is(err, errInvalidValue) {
		t.Errorf("validate -5 err = %v, want errInvalidValue", err)
	}
	if !strings.Contains(out, crossMark) {
		t.Errorf("validate output = %q", out)
	}
	if out, err := run(t, cfg, "fields", "validate", "equipment", id, "12"); err != nil || !strings.Contains(out, "valid") {
		t.Errorf("validate 12: out=%q err=%v", out, err)
	}

	out, err = run(t, cfg, "fields", "reorder", "equipment", id, "equipment_name")
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if !strings.Contains(out, "Reordered 2 field(s)") {
		t.Errorf("reorder output = %q", out)
	}

	if _, err := run(t, cfg, "fields", "delete", "equipment", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run(t, cfg, "fields", "delete", "equipment", id); err == nil {
		t.Error("second delete should fail")
	}
}

func TestFieldsUpdate_SystemFieldForbidden(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	_, err := run(t, cfg, "fields", "update", "equipment", "equipment_name", "--label", "Asset")
	if err == nil {
		t.Fatal("expected system field update to fail under forbid")
	}
}

func TestFieldsUpdate_NothingToUpdate(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	if _, err := run(t, cfg, "fields", "update", "equipment", "equipment_name"); err == nil {
		t.Fatal("expected error for empty update")
	}
}

func TestUnknownModule(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	_, err := run(t, cfg, "fields", "list", "billing")
	if err == nil || !strings.Contains(err.Error(), "equipment") {
		t.Errorf("err = %v, want unknown module listing known modules", err)
	}
}

func TestFormData(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	out, err := run(t, cfg, "form-data", "equipment", "--existing", `{"name":"Lathe"}`)
	if err != nil {
		t.Fatalf("form-data: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data["name"] != "Lathe" {
		t.Errorf("name = %v, want Lathe", data["name"])
	}
	if data["status"] != "Operational" {
		t.Errorf("status = %v, want Operational default", data["status"])
	}
	if data["manufacturer"] != "" {
		t.Errorf("manufacturer = %v, want empty string", data["manufacturer"])
	}
}

func TestForm_RenderAndValidate(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	out, err := run(t, cfg, "form", "inventory", "--set", "quantity=-1")
	if !errors.Is(err, errInvalidValue) {
		t.Fatalf("err = %v, want errInvalidValue", err)
	}
	if !strings.Contains(out, "Part Number *") {
		t.Errorf("required marker missing: %q", out)
	}
	if !strings.Contains(out, "quantity: Quantity cannot be negative") {
		t.Errorf("validation output = %q", out)
	}

	_, err = run(t, cfg, "form", "dashboard",
		"--set", "title=Uptime", "--set", "widgetType=kpi", "--set", "metric=oee")
	if err != nil {
		t.Errorf("complete dashboard form: %v", err)
	}
}

func TestForm_BadSet(t *testing.T) {
	cfg := setupConfig(t, "forbid")

	if _, err := run(t, cfg, "form", "equipment", "--set", "novalue"); err == nil {
		t.Error("expected error for --set without '='")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := setupConfig(t, "audit")

	out, err := run(t, cfg, "config", "validate", "--check-storage")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "System field policy: audit") || !strings.Contains(out, "Storage opens") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "config", "validate"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfigHashKey(t *testing.T) {
	out, err := run(t, "unused.yaml", "config", "hash-key", "s3cret", "--cost", "4")
	if err != nil {
		t.Fatalf("hash-key: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not match key: %v", err)
	}
}
