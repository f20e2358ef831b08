// Package build provides the environment every toolchain subprocess runs with.
// Compiler, archiver and linker invocations all go through ToolchainEnv so a
// build does not depend on whatever happens to be exported in the caller's
// shell beyond the allowed variables.
package build

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
)

// ToolchainEnv returns the environment for compiler/archiver/linker runs.
// It merges:
// 1. Allowed variables from the current process environment
// 2. Explicit KEY=VALUE pairs from the toolchain config
// 3. An auto-detected CPATH when the workspace has header directories
func ToolchainEnv(cfg config.ToolchainConfig, workspaceRoot string) []string {
	logging.BuildDebug("Building toolchain environment for workspace: %s", workspaceRoot)

	env := []string{}
	for _, key := range cfg.AllowedEnvVars {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
			logging.BuildDebug("Added allowed env: %s", key)
		}
	}

	// map order is random; keep the subprocess env stable
	keys := make([]string, 0, len(cfg.Env))
	for key := range cfg.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = setEnvKey(env, key, cfg.Env[key])
		logging.BuildDebug("Added toolchain config env: %s=%s", key, cfg.Env[key])
	}

	if !hasEnvKey(env, "CPATH") {
		if cpath := detectIncludePath(workspaceRoot); cpath != "" {
			env = append(env, "CPATH="+cpath)
			logging.BuildDebug("Auto-detected CPATH: %s", cpath)
		}
	}

	logging.BuildDebug("Final toolchain environment has %d vars", len(env))
	return env
}

// detectIncludePath looks for common header directories under the workspace.
func detectIncludePath(workspaceRoot string) string {
	var dirs []string

	absRoot := workspaceRoot
	if !filepath.IsAbs(workspaceRoot) {
		if abs, err := filepath.Abs(workspaceRoot); err == nil {
			absRoot = abs
		}
	}

	headerDirs := []string{
		"include",
		"FreeRTOS/Source/include",
		"vendor/include",
		"third_party/include",
	}

	for _, dir := range headerDirs {
		fullPath := filepath.Join(absRoot, filepath.FromSlash(dir))
		if info, err := os.Stat(fullPath); err == nil && info.IsDir() {
			dirs = append(dirs, fullPath)
		}
	}

	return strings.Join(dirs, string(os.PathListSeparator))
}

// hasEnvKey checks if an environment key is already set.
func hasEnvKey(env []string, key string) bool {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

// setEnvKey sets or updates an environment variable.
func setEnvKey(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = key + "=" + value
			return env
		}
	}
	return append(env, key+"="+value)
}

// MergeEnv merges additional environment variables into base env.
// Later values override earlier ones.
func MergeEnv(base []string, additional ...string) []string {
	result := make([]string, len(base))
	copy(result, base)

	for _, add := range additional {
		parts := strings.SplitN(add, "=", 2)
		if len(parts) == 2 {
			result = setEnvKey(result, parts[0], parts[1])
		}
	}

	return result
}
