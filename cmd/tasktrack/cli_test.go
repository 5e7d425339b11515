package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
	"tasktrack/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "tasktrack.db")
	cfg.Attachments.Root = filepath.Join(dir, "attachments")
	return &cfg
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(os.Stderr)
	cmd.SetErr(os.Stderr)
	return cmd.ExecuteContext(context.Background())
}

func openTestStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAdminUserAddAndResetPassword(t *testing.T) {
	cfg := testConfig(t)
	jsonOutput := false

	setup := openTestStore(t, cfg)
	if _, err := store.Departments().Create(context.Background(), setup.DB(), "Finance"); err != nil {
		t.Fatalf("create department: %v", err)
	}
	setup.Close()

	add := newAdminUserCmd(cfg, &jsonOutput)
	if err := execute(t, add, "Initial@123\n", "add", "Pat", "--password-stdin", "--role", "admin", "--department", "finance"); err != nil {
		t.Fatalf("admin user add: %v", err)
	}

	st := openTestStore(t, cfg)
	user, err := store.Users{}.GetByUsername(context.Background(), st.DB(), "pat")
	if err != nil || user == nil {
		t.Fatalf("expected user pat, got %v %v", user, err)
	}
	if user.RoleName != "Admin" || user.DepartmentID == nil || user.MustChangePassword {
		t.Fatalf("unexpected user %+v", user)
	}
	st.Close()

	reset := newAdminUserCmd(cfg, &jsonOutput)
	if err := execute(t, reset, "Temporary@99", "reset-password", "pat", "--password-stdin"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	st = openTestStore(t, cfg)
	user, err = store.Users{}.GetByUsername(context.Background(), st.DB(), "pat")
	if err != nil || user == nil || !user.MustChangePassword {
		t.Fatalf("expected must_change_password after reset, got %+v %v", user, err)
	}
}

func TestAdminUserAddRequiresPasswordStdin(t *testing.T) {
	cfg := testConfig(t)
	jsonOutput := false
	err := execute(t, newAdminUserCmd(cfg, &jsonOutput), "", "add", "pat")
	if err == nil || !strings.Contains(err.Error(), "--password-stdin") {
		t.Fatalf("expected --password-stdin error, got %v", err)
	}
}

func TestAdminUserAddUnknownRole(t *testing.T) {
	cfg := testConfig(t)
	jsonOutput := false
	err := execute(t, newAdminUserCmd(cfg, &jsonOutput), "Initial@123", "add", "pat", "--password-stdin", "--role", "Owner")
	if err == nil || !strings.Contains(err.Error(), `role "Owner" not found`) {
		t.Fatalf("expected unknown role error, got %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
departments: [Finance, Sales]
roles: [Admin, Manager]
statuses: [Open, In Progress, Done]
users:
  - username: dana
    password: Welcome@2026
    first_name: Dana
    role: Manager
    department: Sales
`
	if err := os.WriteFile(seedPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	for i := 0; i < 2; i++ {
		jsonOutput := false
		if err := execute(t, newSeedCmd(cfg, &jsonOutput), "", "-f", seedPath); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	st := openTestStore(t, cfg)
	ctx := context.Background()
	statuses, err := store.TaskStatuses().List(ctx, st.DB())
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %+v", statuses)
	}
	roles, err := store.Roles().List(ctx, st.DB())
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected Admin, Manager and User roles, got %+v", roles)
	}
	dana, err := store.Users{}.GetByUsername(ctx, st.DB(), "dana")
	if err != nil || dana == nil {
		t.Fatalf("expected seeded user, got %v %v", dana, err)
	}
	if !dana.MustChangePassword || dana.RoleName != "Manager" {
		t.Fatalf("unexpected seeded user %+v", dana)
	}
}

func TestSeedRejectsBadYAML(t *testing.T) {
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(seedPath, []byte("departments: [unclosed"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := readSeedFile(seedPath); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestExportFilterFlags(t *testing.T) {
	opts := &exportOptions{subject: " audit ", departmentID: 2, dueFrom: "2026-01-01", completedTo: "2026-02-01"}
	filter, err := opts.filter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.Subject != "audit" || filter.DepartmentID != 2 {
		t.Fatalf("unexpected filter %+v", filter)
	}
	if filter.DueFrom == nil || filter.DueFrom.String() != "2026-01-01" || filter.CompletedTo == nil || filter.DueTo != nil {
		t.Fatalf("unexpected date bounds %+v", filter)
	}

	opts = &exportOptions{dueTo: "01/02/2026"}
	if _, err := opts.filter(); err == nil || !strings.Contains(err.Error(), "--due-to") {
		t.Fatalf("expected --due-to error, got %v", err)
	}
}

func TestExportWritesWorkbook(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "tasks.xlsx")
	if err := execute(t, newExportCmd(cfg), "", "-o", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty workbook")
	}
}

func TestMigrateDryRunReportsPending(t *testing.T) {
	cfg := testConfig(t)
	jsonOutput := false
	if err := execute(t, newMigrateCmd(cfg, &jsonOutput), "", "--dry-run"); err != nil {
		t.Fatalf("migrate --dry-run: %v", err)
	}

	st, err := store.OpenWithoutMigrations(cfg.DBPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	plan, err := store.MigrationPlan(st.SQL())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CurrentVersion != 0 || len(plan.Pending) == 0 {
		t.Fatalf("expected dry run to leave schema untouched, got %+v", plan)
	}
}

func TestAttachmentsSweepRemovesStaleUploads(t *testing.T) {
	cfg := testConfig(t)
	files, err := openAttachments(cfg, nil)
	if err != nil {
		t.Fatalf("open attachments: %v", err)
	}
	stale := filepath.Join(files.StagingDir(), "stale.pdf")
	if err := os.WriteFile(stale, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age staged file: %v", err)
	}

	jsonOutput := false
	if err := execute(t, newAttachmentsCmd(cfg, &jsonOutput), "", "sweep", "--older-than", "24h"); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale upload removed, stat err=%v", err)
	}
}
