// Package e2e provides end-to-end tests for the complete field configuration flow.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/maintforms/bootstrap"
	"golang.org/x/crypto/bcrypt"
)

const adminKey = "e2e-admin-key"

// TestE2E_CustomFieldFlow tests the complete custom field flow:
// 1. Start the service on sqlite
// 2. Add a custom field with the admin key
// 3. Validate values and generate form data against it
// 4. Restart and verify the field persisted
// 5. Delete it
func TestE2E_CustomFieldFlow(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "forbid")

	app, addr := startApp(t, configPath)

	status, body := do(t, addr, http.MethodPost, "/api/modules/equipment/fields", map[string]any{
		"name":  "warrantyMonths",
		"label": "Warranty (months)",
		"type":  "number",
		"validation": map[string]any{
			"min":     0,
			"message": "Warranty cannot be negative",
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("add status = %d, body: %s", status, body)
	}
	var added struct {
		ID       string `json:"id"`
		Order    int    `json:"order"`
		IsSystem bool   `json:"isSystem"`
	}
	mustDecode(t, body, &added)
	if !strings.HasPrefix(added.ID, "custom_") || added.Order != 11 || added.IsSystem {
		t.Fatalf("added = %+v", added)
	}

	status, body = do(t, addr, http.MethodPost, "/api/modules/equipment/fields/"+added.ID+"/validate",
		map[string]any{"value": -3})
	if status != http.StatusOK {
		t.Fatalf("validate status = %d, body: %s", status, body)
	}
	var res struct {
		Valid   bool   `json:"isValid"`
		Message string `json:"message"`
	}
	mustDecode(t, body, &res)
	if res.Valid || res.Message != "Warranty cannot be negative" {
		t.Errorf("validate -3 = %+v", res)
	}

	status, body = do(t, addr, http.MethodPost, "/api/modules/equipment/form-data",
		map[string]any{"existing": map[string]any{"name": "Chiller 2"}})
	if status != http.StatusOK {
		t.Fatalf("form-data status = %d, body: %s", status, body)
	}
	var data map[string]any
	mustDecode(t, body, &data)
	if data["name"] != "Chiller 2" || data["warrantyMonths"] != float64(0) {
		t.Errorf("form data = %v", data)
	}

	if err := app.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// Restart on the same database.
	_, addr = startApp(t, configPath)

	status, body = do(t, addr, http.MethodGet, "/api/modules/equipment/fields", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if !strings.Contains(string(body), added.ID) {
		t.Fatalf("custom field lost after restart: %s", body)
	}

	status, _ = do(t, addr, http.MethodDelete, "/api/modules/equipment/fields/"+added.ID, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", status)
	}
	status, _ = do(t, addr, http.MethodDelete, "/api/modules/equipment/fields/equipment_name", nil)
	if status != http.StatusNotFound {
		t.Errorf("delete system field status = %d, want 404", status)
	}
}

// TestE2E_SystemFieldAudit tests audited edits of system fields.
func TestE2E_SystemFieldAudit(t *testing.T) {
	dir := t.TempDir()
	_, addr := startApp(t, writeConfig(t, dir, "audit"))

	status, body := do(t, addr, http.MethodPatch, "/api/modules/workorders/fields/workorders_title",
		map[string]any{"label": "Summary"})
	if status != http.StatusOK {
		t.Fatalf("patch status = %d, body: %s", status, body)
	}

	status, _ = do(t, addr, http.MethodPatch, "/api/modules/workorders/fields/workorders_title",
		map[string]any{"name": "summary"})
	if status != http.StatusForbidden {
		t.Errorf("rename system field status = %d, want 403", status)
	}

	status, body = do(t, addr, http.MethodGet, "/api/modules/workorders/audit", nil)
	if status != http.StatusOK {
		t.Fatalf("audit status = %d", status)
	}
	var trail struct {
		Entries []struct {
			FieldID string `json:"fieldId"`
			Actor   string `json:"actor"`
			After   struct {
				Label string `json:"label"`
			} `json:"after"`
		} `json:"entries"`
	}
	mustDecode(t, body, &trail)
	if len(trail.Entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(trail.Entries))
	}
	e := trail.Entries[0]
	if e.FieldID != "workorders_title" || e.Actor != "e2e" || e.After.Label != "Summary" {
		t.Errorf("audit entry = %+v", e)
	}
}

// TestE2E_AdminKeyRequired tests rejection of schema changes without the admin key.
func TestE2E_AdminKeyRequired(t *testing.T) {
	dir := t.TempDir()
	_, addr := startApp(t, writeConfig(t, dir, "forbid"))

	client := &http.Client{Timeout: 5 * time.Second}
	req, _ := http.NewRequest(http.MethodPost, "http://"+addr+"/api/modules/inventory/fields",
		strings.NewReader(`{"name":"bin","label":"Bin","type":"text"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	// Reads stay open.
	status, _ := do(t, addr, http.MethodGet, "/api/modules", nil)
	if status != http.StatusOK {
		t.Errorf("modules status = %d, want 200", status)
	}
}

// TestE2E_HealthEndpoints tests the operational endpoints.
func TestE2E_HealthEndpoints(t *testing.T) {
	dir := t.TempDir()
	_, addr := startApp(t, writeConfig(t, dir, "forbid"))

	for _, path := range []string{"/health", "/version", "/metrics"} {
		status, body := do(t, addr, http.MethodGet, path, nil)
		if status != http.StatusOK {
			t.Errorf("%s status = %d, body: %s", path, status, body)
		}
	}
}

func writeConfig(t *testing.T, dir, policy string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin key: %v", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	configContent := fmt.Sprintf(`
server:
  host: "127.0.0.1"

storage:
  driver: sqlite
  dsn: "%s"

fields:
  system_field_policy: %s

admin:
  api_key_hash: '%s'

logging:
  level: error
  format: json

metrics:
  enabled: true
`, filepath.Join(dir, "test.db"), policy, hash)

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

// startApp boots the application from configPath on a free port.
func startApp(t *testing.T, configPath string) (*bootstrap.App, string) {
	t.Helper()

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: configPath,
		Version:    "e2e",
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { app.Shutdown() })

	// Find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	app.HTTPServer.Addr = addr
	go func() {
		if err := app.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log but don't fail - server might be shutting down
		}
	}()

	waitForServer(t, addr)
	return app, addr
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	client := &http.Client{Timeout: 100 * time.Millisecond}

	for i := 0; i < 50; i++ {
		resp, err := client.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("server at %s did not become ready", addr)
}

// do sends an authenticated JSON request and returns status and body.
func do(t *testing.T, addr, method, path string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, "http://"+addr+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", adminKey)
	req.Header.Set("X-Actor", "e2e")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func mustDecode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}
