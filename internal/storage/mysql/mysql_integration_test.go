//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"travel_gateway/internal/domain"
	mysqlrepo "travel_gateway/internal/storage/mysql"
)

// ---------- small helpers ----------

// migrationsDir prefers MIGRATIONS_DIR and falls back to the repo's own folder.
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestRepo_MySQL_RecordAndListFaults(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=gateway",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "gateway")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	events := []domain.FaultEvent{
		{Service: "amadeus", Op: "flight-offers", Kind: domain.FaultUpstream, Status: 429, Detail: "Too many requests"},
		{Service: "sherpa", Op: "requirements", Kind: domain.FaultTimeout},
		{Service: "amadeus", Op: "locations", Kind: domain.FaultNetwork},
	}
	for _, ev := range events {
		if err := repo.RecordFault(ctx, ev); err != nil {
			t.Fatalf("RecordFault: %v", err)
		}
	}

	got, err := repo.RecentFaults(ctx, "amadeus", 10)
	if err != nil {
		t.Fatalf("RecentFaults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 amadeus faults, got %d: %+v", len(got), got)
	}
	// newest first; empty status/detail round-trip as zero values
	if got[0] != events[2] || got[1] != events[0] {
		t.Fatalf("unexpected faults: %+v", got)
	}

	got, err = repo.RecentFaults(ctx, "sherpa", 1)
	if err != nil {
		t.Fatalf("RecentFaults: %v", err)
	}
	if len(got) != 1 || got[0] != events[1] {
		t.Fatalf("unexpected sherpa faults: %+v", got)
	}
}
