package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "a-very-long-test-secret"
report:
  import_batch_size: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Report.ImportBatchSize != 50 {
		t.Errorf("期望 import_batch_size=50，实际 %d", cfg.Report.ImportBatchSize)
	}
	if cfg.Report.PDFDetailLimit != 50 {
		t.Errorf("期望 pdf_detail_limit 默认 50，实际 %d", cfg.Report.PDFDetailLimit)
	}
	if cfg.Report.Location().String() != "America/Bogota" {
		t.Errorf("期望时区 America/Bogota，实际 %s", cfg.Report.Location())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "a-very-long-test-secret"
`)
	t.Setenv("PAE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望环境变量覆盖端口为 9090，实际 %d", cfg.Server.Port)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "short"
`)
	if _, err := Load(path); err == nil {
		t.Error("jwt_secret 过短应校验失败")
	}
}

func TestValidate_BadCohortPattern(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "a-very-long-test-secret"
report:
  cohort_pattern: "([0-9"
`)
	if _, err := Load(path); err == nil {
		t.Error("非法 cohort_pattern 应校验失败")
	}
}
