package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := fromYAML(defaults())
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 0 {
		t.Errorf("HTTPTimeout = %v, want no timeout", cfg.HTTPTimeout)
	}
	if cfg.MinGroupInvites != 2 || cfg.PageSize != 20 {
		t.Errorf("MinGroupInvites = %d, PageSize = %d", cfg.MinGroupInvites, cfg.PageSize)
	}
	if cfg.CredentialStore != "memory" || cfg.CredentialTTL != 24*time.Hour {
		t.Errorf("store = %q ttl = %v", cfg.CredentialStore, cfg.CredentialTTL)
	}
	d := cfg.Demo
	if d.InviteDelay != 600*time.Millisecond || d.CancelDelay != 500*time.Millisecond ||
		d.FinalizeDelay != time.Second || d.ListDelay != 800*time.Millisecond {
		t.Errorf("delays = %+v", d)
	}
	if d.InviteFailRate != 0.05 || d.CancelFailRate != 0.03 || d.FinalizeFailRate != 0.08 {
		t.Errorf("fail rates = %v %v %v", d.InviteFailRate, d.CancelFailRate, d.FinalizeFailRate)
	}
}

func TestYAMLAndEnvOverride(t *testing.T) {
	raw := `
api_base_url: http://portal.example/
credential_store: redis
page_size: 10
demo:
  invite_fail_rate: 0
  finalize_delay_ms: 5
`
	yc := defaults()
	if err := yaml.Unmarshal([]byte(raw), &yc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("DEMO_CANCEL_FAIL_RATE", "1.5") // вне [0,1], игнорируется
	t.Setenv("MIN_GROUP_INVITES", "-1")

	cfg := fromYAML(yc)
	if cfg.APIBaseURL != "http://portal.example" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.CredentialStore != "redis" {
		t.Errorf("CredentialStore = %q", cfg.CredentialStore)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want env override 50", cfg.PageSize)
	}
	if cfg.MinGroupInvites != 2 {
		t.Errorf("MinGroupInvites = %d, want fallback 2", cfg.MinGroupInvites)
	}
	if cfg.Demo.InviteFailRate != 0 || cfg.Demo.FinalizeDelay != 5*time.Millisecond {
		t.Errorf("demo = %+v", cfg.Demo)
	}
	if cfg.Demo.CancelFailRate != 0.03 {
		t.Errorf("CancelFailRate = %v, want default", cfg.Demo.CancelFailRate)
	}
}

func TestUnknownCredentialStore(t *testing.T) {
	t.Setenv("CREDENTIAL_STORE", "sqlite")
	if cfg := fromYAML(defaults()); cfg.CredentialStore != "memory" {
		t.Errorf("CredentialStore = %q, want memory", cfg.CredentialStore)
	}
}

func TestFileCredentialStore(t *testing.T) {
	yc := defaults()
	yc.CredentialStore = "file"
	cfg := fromYAML(yc)
	if cfg.CredentialStore != "file" {
		t.Errorf("CredentialStore = %q, want file", cfg.CredentialStore)
	}
	if filepath.Base(cfg.CredentialFile) != "credentials.json" {
		t.Errorf("CredentialFile = %q, want default credentials.json", cfg.CredentialFile)
	}

	t.Setenv("CREDENTIAL_FILE", "/tmp/portal-creds.json")
	if cfg := fromYAML(yc); cfg.CredentialFile != "/tmp/portal-creds.json" {
		t.Errorf("CredentialFile = %q, want env override", cfg.CredentialFile)
	}
}

func TestLoadFromConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte("profile: work\nserver_addr: \":9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "production") // не подхватывать .env из рабочей директории
	t.Setenv("CONFIG_PATH", path)
	cfg := Load()
	if cfg.Profile != "work" || cfg.ServerAddr != ":9000" {
		t.Errorf("Profile = %q ServerAddr = %q", cfg.Profile, cfg.ServerAddr)
	}
}

func TestLoadEnvFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nPORTAL_TEST_A=one\nPORTAL_TEST_B=\"two\"\nPORTAL_TEST_C=keep\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTAL_TEST_A", "")
	t.Setenv("PORTAL_TEST_B", "")
	t.Setenv("PORTAL_TEST_C", "already")
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	loadEnvFrom(f)

	if os.Getenv("PORTAL_TEST_A") != "one" || os.Getenv("PORTAL_TEST_B") != "two" {
		t.Errorf("A = %q B = %q", os.Getenv("PORTAL_TEST_A"), os.Getenv("PORTAL_TEST_B"))
	}
	if os.Getenv("PORTAL_TEST_C") != "already" {
		t.Errorf("existing env overwritten: %q", os.Getenv("PORTAL_TEST_C"))
	}
}
