package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	TEST_SERVER_TIMEOUT = 15 * time.Second
	TEST_JWT_SECRET     = "e2e-secret"
)

type habitJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CurrentStreak int    `json:"currentStreak"`
}

func TestEndToEndWorkflow(t *testing.T) {
	// 1. Setup Environment
	// Allow overriding bin dir via env var, default to ../../bin (relative to tests/e2e)
	binDir := os.Getenv("HABITA_BIN_DIR")
	if binDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Failed to get cwd: %v", err)
		}
		binDir = filepath.Join(cwd, "..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)
	cliPath := filepath.Join(binDir, "habita")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s, build it with 'go build -o bin/habita ./cmd/habita'", cliPath)
	}

	tempDir := t.TempDir()
	t.Logf("Running test in temp dir: %s", tempDir)

	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "HOME=") && !strings.HasPrefix(e, "HABITA_") {
			env = append(env, e)
		}
	}
	addr := freeAddr(t)
	env = append(env,
		"HOME="+tempDir,
		"HABITA_CONFIG="+filepath.Join(tempDir, "habita", "habita.db"),
		"HABITA_SETTINGS="+filepath.Join(tempDir, "habita", "config.yaml"),
		"HABITA_TIMEZONE=UTC",
		"HABITA_TRAY=false",
		"HABITA_API_ADDR="+addr,
		"HABITA_JWT_SECRET="+TEST_JWT_SECRET,
	)

	// 2. Initialize with demo data and add a habit
	t.Log("Initializing CLI...")
	runCmd(t, cliPath, env, "init", "--demo")
	runCmd(t, cliPath, env, "habit", "add", "Stretch", "--difficulty", "easy", "--days", "mon,wed,fri")

	// 3. Complete it and check the level output
	out := runCmd(t, cliPath, env, "habit", "toggle", "Stretch")
	if !strings.Contains(out, "+10 points") {
		t.Errorf("expected easy habit to earn 10 points, got: %s", out)
	}
	out = runCmd(t, cliPath, env, "level")
	if !strings.Contains(out, "10 points") {
		t.Errorf("expected level output to show 10 points, got: %s", out)
	}

	// 4. Backups, export and health checks
	runCmd(t, cliPath, env, "backup", "create")
	out = runCmd(t, cliPath, env, "backup", "list")
	if !strings.Contains(out, "habita-") {
		t.Errorf("expected a backup in list output, got: %s", out)
	}
	runCmd(t, cliPath, env, "export", "--dir", filepath.Join(tempDir, "exports"))
	runCmd(t, cliPath, env, "validate")
	runCmd(t, cliPath, env, "doctor")

	// 5. Serve the API and read the habit back
	token := strings.TrimSpace(runCmd(t, cliPath, env, "token", "--subject", "e2e"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveCmd := exec.CommandContext(ctx, cliPath, "serve", "--no-reminders")
	serveCmd.Env = env
	if err := serveCmd.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer func() {
		cancel()
		_ = serveCmd.Wait()
	}()

	base := "http://" + addr
	waitForHealth(t, base+"/health", TEST_SERVER_TIMEOUT)

	req, _ := http.NewRequest(http.MethodGet, base+"/api/habits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to list habits: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var habits []habitJSON
	if err := json.NewDecoder(resp.Body).Decode(&habits); err != nil {
		t.Fatalf("Failed to decode habits: %v", err)
	}
	found := false
	for _, h := range habits {
		if h.Name == "Stretch" {
			found = true
			if h.CurrentStreak != 1 {
				t.Errorf("expected streak 1 for Stretch, got %d", h.CurrentStreak)
			}
		}
	}
	if !found || len(habits) != 5 {
		t.Errorf("expected 5 habits including Stretch, got %+v", habits)
	}

	unauth, err := http.Get(base + "/api/habits")
	if err != nil {
		t.Fatalf("Failed to call API: %v", err)
	}
	unauth.Body.Close()
	if unauth.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", unauth.StatusCode)
	}
}

func runCmd(t *testing.T, path string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Command %s %v failed: %v\nOutput: %s", path, args, err, out)
	}
	return string(out)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer l.Close()
	return fmt.Sprintf("127.0.0.1:%d", l.Addr().(*net.TCPAddr).Port)
}

func waitForHealth(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	start := time.Now()
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Since(start) > timeout {
			t.Fatalf("Timed out waiting for %s", url)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
