package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvMissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadDotEnv() = %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	body := "HOMEWORKBOT_TEST_A=from-file\nHOMEWORKBOT_TEST_B=from-file\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOMEWORKBOT_TEST_A", "from-env")
	t.Setenv("HOMEWORKBOT_TEST_B", "")
	os.Unsetenv("HOMEWORKBOT_TEST_B")

	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv() = %v", err)
	}
	if got := os.Getenv("HOMEWORKBOT_TEST_A"); got != "from-env" {
		t.Fatalf("A = %q", got)
	}
	if got := os.Getenv("HOMEWORKBOT_TEST_B"); got != "from-file" {
		t.Fatalf("B = %q", got)
	}
}

func TestApplyEnvNilSafe(t *testing.T) {
	ApplyEnv(nil, nil)
	cfg := &Config{}
	ApplyEnv(cfg, envOf(map[string]string{EnvPracticumEndpoint: "http://x"}))
	if cfg.Practicum.Endpoint != "http://x" {
		t.Fatalf("endpoint = %q", cfg.Practicum.Endpoint)
	}
}
