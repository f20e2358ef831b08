package build

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"compartmentalize/internal/config"
)

func TestEnvKeyHelpers(t *testing.T) {
	env := []string{"FOO=1", "BAR=2"}

	if !hasEnvKey(env, "FOO") {
		t.Fatalf("hasEnvKey(env, FOO) = false, want true")
	}
	if hasEnvKey(env, "BA") {
		t.Fatalf("hasEnvKey(env, BA) = true, want false")
	}

	updated := setEnvKey(append([]string{}, env...), "FOO", "3")
	if updated[0] != "FOO=3" {
		t.Fatalf("setEnvKey updated[0] = %q, want %q", updated[0], "FOO=3")
	}

	added := setEnvKey(append([]string{}, env...), "BAZ", "9")
	if !hasEnvKey(added, "BAZ") {
		t.Fatalf("setEnvKey did not add BAZ key")
	}

	merged := MergeEnv(env, "BAR=7", "BAZ=9", "malformed")
	if !hasEnvKey(merged, "BAR") || !hasEnvKey(merged, "BAZ") {
		t.Fatalf("MergeEnv missing expected keys: %v", merged)
	}
	for _, entry := range merged {
		if entry == "BAR=2" {
			t.Fatalf("MergeEnv did not override BAR: %v", merged)
		}
	}
	if len(merged) != 3 {
		t.Fatalf("MergeEnv len = %d, want 3: %v", len(merged), merged)
	}
	if env[1] != "BAR=2" {
		t.Fatalf("MergeEnv modified its base: %v", env)
	}
}

func TestToolchainEnv_AllowedAndExplicit(t *testing.T) {
	t.Setenv("CHERI_SDK", "/opt/cheri")
	t.Setenv("SECRET_TOKEN", "leak")
	t.Setenv("CPATH", "")

	cfg := config.DefaultToolchainConfig()
	cfg.AllowedEnvVars = []string{"CHERI_SDK", "UNSET_VAR"}
	cfg.Env = map[string]string{"CHERI_SDK": "/override", "ZZ": "1", "AA": "2"}

	env := ToolchainEnv(cfg, t.TempDir())

	want := []string{"CHERI_SDK=/override", "AA=2", "ZZ=1"}
	if strings.Join(env, ",") != strings.Join(want, ",") {
		t.Fatalf("ToolchainEnv() = %v, want %v", env, want)
	}
}

func TestToolchainEnv_DetectsCPATH(t *testing.T) {
	root := t.TempDir()
	dirs := []string{
		filepath.Join(root, "include"),
		filepath.Join(root, "FreeRTOS", "Source", "include"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdirAll(%q): %v", dir, err)
		}
	}

	cfg := config.DefaultToolchainConfig()
	cfg.AllowedEnvVars = nil

	env := ToolchainEnv(cfg, root)
	want := "CPATH=" + dirs[0] + string(os.PathListSeparator) + dirs[1]
	if len(env) != 1 || env[0] != want {
		t.Fatalf("ToolchainEnv() = %v, want [%s]", env, want)
	}

	cfg.Env = map[string]string{"CPATH": "/explicit"}
	env = ToolchainEnv(cfg, root)
	if len(env) != 1 || env[0] != "CPATH=/explicit" {
		t.Fatalf("explicit CPATH not respected: %v", env)
	}
}

func TestDetectIncludePath_None(t *testing.T) {
	if got := detectIncludePath(t.TempDir()); got != "" {
		t.Fatalf("detectIncludePath() = %q, want empty", got)
	}
}
