package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storepilot/internal/mirror"
	"storepilot/internal/model"
)

const stockPlan = `{"find_product":{"title_contains":"Camiseta"},"changes":[{"field":"stock","action":"SET","value":0}]}`

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Package-level flag variables survive between runs.
	planFile, wait, limit = "-", false, 0
	storeID, accessToken, storeLang, seedFile = "", "", "pt", "-"

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestApplyWait(t *testing.T) {
	var gotPath, gotQuery string
	var gotPlan model.Plan
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotPlan)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"history_id":"h1","summary":"stock SET","affected_count":3,"status":"SUCCESS"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, stockPlan, "apply", "--server", srv.URL, "--store", "7", "--wait")
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if gotPath != "/stores/7/plans" || gotQuery != "wait=true" {
		t.Errorf("request = %s?%s", gotPath, gotQuery)
	}
	if gotPlan.FindProduct.TitleContains != "Camiseta" {
		t.Errorf("plan = %+v", gotPlan)
	}
	if !strings.Contains(out, `"affected_count": 3`) {
		t.Errorf("output not indented JSON: %s", out)
	}
}

func TestPreviewFromFile(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"summary":"x","affected_count":1,"samples":["Camiseta"]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "plan.json")
	if err := writeFile(path, stockPlan); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "", "preview", "--server", srv.URL, "--store", "7", "-f", path); err != nil {
		t.Fatalf("preview error = %v", err)
	}
	if gotPath != "/stores/7/plans/preview" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestRevertError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"CONFLICT","message":"history entry is REVERTED"}}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "", "revert", "h1", "--server", srv.URL, "--store", "7")
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *apiError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "CONFLICT" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHistoryLimit(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"history":[]}`))
	}))
	defer srv.Close()

	if _, err := runCLI(t, "", "history", "--server", srv.URL, "--store", "7", "--limit", "5"); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q, want limit=5", gotQuery)
	}
}

func TestPlanCommandsRequireStore(t *testing.T) {
	if _, err := runCLI(t, "", "history", "--server", "http://127.0.0.1:1"); err == nil || !strings.Contains(err.Error(), "--store") {
		t.Errorf("error = %v, want --store required", err)
	}
}

func TestReadPlanInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"no mode", `{"find_product":{}}`},
		{"unknown field", `{"changes":[{"field":"colour","action":"SET","value":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readPlan(strings.NewReader(tt.input), "-"); err == nil {
				t.Error("readPlan should fail")
			}
		})
	}
}

func TestDBAndStoreCommands(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "cli.db")

	if _, err := runCLI(t, "", "db", "migrate", "--db-url", url); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	out, err := runCLI(t, "", "db", "status", "--db-url", url)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "MIGRATION") || !strings.Contains(out, "true") {
		t.Errorf("status output = %s", out)
	}

	out, err = runCLI(t, "", "store", "put", "--db-url", url, "--store", "7", "--token", "tok")
	if err != nil {
		t.Fatalf("store put error = %v", err)
	}
	if !strings.Contains(out, "store 7 saved") {
		t.Errorf("output = %s", out)
	}

	if _, err := runCLI(t, "", "store", "put", "--db-url", url, "--store", "7"); err == nil {
		t.Error("store put without token should fail")
	}
}

func TestStoreSeed(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "seed.db")
	if _, err := runCLI(t, "", "db", "migrate", "--db-url", url); err != nil {
		t.Fatalf("migrate error = %v", err)
	}

	rows := `[
		{"external_id": 11, "store_id": "ignored", "name": "Camiseta Azul", "price": "59.90", "stock": 3},
		{"external_id": 12, "name": "Camiseta Preta", "price": "59.90", "stock": 0}
	]`
	out, err := runCLI(t, rows, "store", "seed", "--db-url", url, "--store", "7")
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if !strings.Contains(out, "2 products seeded for store 7") {
		t.Errorf("output = %s", out)
	}

	db, err := mirror.Open(url)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo, err := mirror.NewRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	p, err := repo.GetProduct(context.Background(), "7", 11)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if p.Name != "Camiseta Azul" || p.Stock != 3 || p.Price.StringFixed(2) != "59.90" {
		t.Errorf("row = %+v", p)
	}

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"store required", rows, []string{"store", "seed", "--db-url", url}},
		{"invalid json", "{", []string{"store", "seed", "--db-url", url, "--store", "7"}},
		{"missing external id", `[{"name": "x"}]`, []string{"store", "seed", "--db-url", url, "--store", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.stdin, tt.args...); err == nil {
				t.Error("seed should fail")
			}
		})
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
