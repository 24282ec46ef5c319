package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartclient/pkg/conn"
)

func testConnConfig(host string) conn.ConnConfig {
	c := conn.DefaultConfig()
	c.Host = host
	c.User = "alice"
	c.Dir = "/apps/payroll"
	return c
}

func newTestManager(t *testing.T) *FileConfigManager {
	t.Helper()
	return NewFileConfigManager(filepath.Join(t.TempDir(), "smartclient"))
}

func TestConfigInfo_Validate(t *testing.T) {
	valid := testConnConfig("server")

	tests := []struct {
		name    string
		config  ConfigInfo
		wantErr bool
	}{
		{
			name:    "valid profile",
			config:  ConfigInfo{Name: "prod", Config: valid, CreatedAt: time.Now(), LastUsedAt: time.Now()},
			wantErr: false,
		},
		{
			name:    "empty name",
			config:  ConfigInfo{Name: "", Config: valid, CreatedAt: time.Now()},
			wantErr: true,
		},
		{
			name:    "name looks like an address",
			config:  ConfigInfo{Name: "host:9735", Config: valid, CreatedAt: time.Now()},
			wantErr: true,
		},
		{
			name:    "invalid connection config",
			config:  ConfigInfo{Name: "prod", Config: conn.ConnConfig{}, CreatedAt: time.Now()},
			wantErr: true,
		},
		{
			name:    "zero created at",
			config:  ConfigInfo{Name: "prod", Config: valid},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ConfigInfo.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewFileConfigManager(t *testing.T) {
	manager := NewFileConfigManager("/test/config")

	if manager.configDir != "/test/config" {
		t.Errorf("configDir = %s, want /test/config", manager.configDir)
	}
	if got := manager.GetConfigPath(); got != filepath.Join("/test/config", "profiles.json") {
		t.Errorf("GetConfigPath() = %s", got)
	}
}

func TestFileConfigManager_Initialize(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if _, err := os.Stat(manager.GetConfigPath()); err != nil {
		t.Errorf("profile file not created: %v", err)
	}
}

func TestFileConfigManager_SaveAndLoadConfig(t *testing.T) {
	manager := newTestManager(t)
	cfg := testConnConfig("server")
	cfg.Encryption = true

	if err := manager.SaveConfig("prod", cfg); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	loaded, err := manager.LoadConfig("prod")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if loaded != cfg {
		t.Errorf("LoadConfig() = %+v, want %+v", loaded, cfg)
	}
}

func TestFileConfigManager_SaveConfigErrors(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.SaveConfig("", testConnConfig("server")); err == nil {
		t.Error("SaveConfig with empty name should fail")
	}
	if err := manager.SaveConfig("bad", conn.ConnConfig{}); err == nil {
		t.Error("SaveConfig with invalid config should fail")
	}
	if _, err := manager.LoadConfig("missing"); err == nil {
		t.Error("LoadConfig of a missing profile should fail")
	}
	if _, err := manager.LoadConfig(""); err == nil {
		t.Error("LoadConfig with empty name should fail")
	}
}

func TestFileConfigManager_SavePreservesMetadata(t *testing.T) {
	manager := newTestManager(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return created }

	if err := manager.SaveConfig("prod", testConnConfig("a")); err != nil {
		t.Fatal(err)
	}
	if err := manager.SetConfigDescription("prod", "payroll server"); err != nil {
		t.Fatal(err)
	}

	manager.now = func() time.Time { return created.Add(time.Hour) }
	if err := manager.SaveConfig("prod", testConnConfig("b")); err != nil {
		t.Fatal(err)
	}

	info, err := manager.GetConfigInfo("prod")
	if err != nil {
		t.Fatal(err)
	}
	if !info.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", info.CreatedAt, created)
	}
	if info.Description != "payroll server" {
		t.Errorf("Description = %q", info.Description)
	}
	if info.Config.Host != "b" {
		t.Errorf("Host = %q, want b", info.Config.Host)
	}
}

func TestFileConfigManager_ListConfigs(t *testing.T) {
	manager := newTestManager(t)

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs() on empty store failed: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("ListConfigs() = %d profiles, want 0", len(configs))
	}

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := manager.SaveConfig(name, testConnConfig(name)); err != nil {
			t.Fatal(err)
		}
	}

	configs, err = manager.ListConfigs()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range configs {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("ListConfigs() names = %v, want sorted", names)
	}
}

func TestFileConfigManager_DeleteConfig(t *testing.T) {
	manager := newTestManager(t)
	manager.SaveConfig("prod", testConnConfig("server"))

	if !manager.ConfigExists("prod") {
		t.Fatal("ConfigExists() = false after save")
	}
	if err := manager.DeleteConfig("prod"); err != nil {
		t.Fatalf("DeleteConfig() failed: %v", err)
	}
	if manager.ConfigExists("prod") {
		t.Error("ConfigExists() = true after delete")
	}
	if err := manager.DeleteConfig("prod"); err == nil {
		t.Error("DeleteConfig of a missing profile should fail")
	}
	if manager.ConfigExists("") {
		t.Error("ConfigExists(\"\") should be false")
	}
}

func TestFileConfigManager_GetDefaultConfig(t *testing.T) {
	manager := newTestManager(t)
	if got := manager.GetDefaultConfig(); got != conn.DefaultConfig() {
		t.Errorf("GetDefaultConfig() = %+v", got)
	}
}

func TestFileConfigManager_ExportImport(t *testing.T) {
	src := newTestManager(t)
	src.SaveConfig("prod", testConnConfig("prod.example"))
	src.SaveConfig("test", testConnConfig("test.example"))
	src.SetConfigDescription("prod", "production")

	var buf bytes.Buffer
	if err := src.Export(&buf, "prod"); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "host: prod.example") || strings.Contains(out, "test.example") {
		t.Errorf("Export(prod) output:\n%s", out)
	}
	if !strings.Contains(out, "dial_timeout: 10s") {
		t.Errorf("durations should export in readable form:\n%s", out)
	}

	dst := newTestManager(t)
	n, err := dst.Import(strings.NewReader(out), false)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Import() = %d, want 1", n)
	}
	info, err := dst.GetConfigInfo("prod")
	if err != nil {
		t.Fatal(err)
	}
	if info.Config != testConnConfig("prod.example") || info.Description != "production" {
		t.Errorf("imported profile = %+v", info)
	}

	if _, err := dst.Import(strings.NewReader(out), false); err == nil {
		t.Error("Import without overwrite should refuse an existing profile")
	}
	if _, err := dst.Import(strings.NewReader(out), true); err != nil {
		t.Errorf("Import with overwrite failed: %v", err)
	}

	buf.Reset()
	if err := src.Export(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "test.example") {
		t.Error("Export() with no names should include every profile")
	}
	if err := src.Export(&buf, "missing"); err == nil {
		t.Error("Export of a missing profile should fail")
	}
}

func TestFileConfigManager_ImportHandWritten(t *testing.T) {
	doc := `
version: "1.0"
profiles:
  - name: lab
    config:
      host: 10.1.1.5
      port: 9000
      local_port: 0
      encryption: true
      handshake_timeout: 1m
`
	manager := newTestManager(t)
	n, err := manager.Import(strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Import() = %d, want 1", n)
	}
	cfg, err := manager.LoadConfig("lab")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || !cfg.Encryption || cfg.LocalPort != conn.LocalPortNone || cfg.HandshakeTimeout != time.Minute {
		t.Errorf("imported config = %+v", cfg)
	}
}

func TestFileConfigManager_ImportInvalid(t *testing.T) {
	manager := newTestManager(t)
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "profiles: [unterminated"},
		{"missing host", "profiles:\n  - name: x\n    config:\n      port: 1\n"},
		{"bad name", "profiles:\n  - name: \"a b\"\n    config:\n      host: h\n      port: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Import(strings.NewReader(tt.doc), true); err == nil {
				t.Error("Import() should fail")
			}
		})
	}
	if configs, _ := manager.ListConfigs(); len(configs) != 0 {
		t.Errorf("failed imports stored %d profiles", len(configs))
	}
}

func TestFileConfigManager_InvalidConfigFile(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.Initialize(); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(manager.GetConfigPath(), []byte("{not json"), 0644)

	if _, err := manager.ListConfigs(); err == nil {
		t.Error("ListConfigs() should fail on a corrupt file")
	}
	if err := manager.SaveConfig("x", testConnConfig("h")); err == nil {
		t.Error("SaveConfig() should fail on a corrupt file")
	}
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())
	dir, err := DefaultConfigDir()
	if err != nil {
		t.Fatalf("DefaultConfigDir() failed: %v", err)
	}
	if filepath.Base(dir) != "smartclient" {
		t.Errorf("DefaultConfigDir() = %s", dir)
	}
}
