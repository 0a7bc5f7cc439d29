package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "不存在.yaml"))
	if err == nil {
		t.Fatal("指定的配置文件不存在时应报错")
	}

	// 不指定路径时退回默认值
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.Database.Path != "./db/source.db" {
		t.Errorf("默认数据库路径不符: %q", cfg.Database.Path)
	}
	if cfg.Report.DefaultThreshold != "22:00:00" {
		t.Errorf("默认夜点门槛不符: %q", cfg.Report.DefaultThreshold)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("默认日志配置不符: %+v", cfg.Log)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `db:
  path: /tmp/test.db
report:
  default_threshold: "21:30:00"
  class_thresholds:
    夜班: "23:00:00"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("数据库路径不符: %q", cfg.Database.Path)
	}
	if got := cfg.Report.ThresholdFor("夜班"); got != "23:00:00" {
		t.Errorf("班别门槛覆写不符: %q", got)
	}
	if got := cfg.Report.ThresholdFor("早班"); got != "21:30:00" {
		t.Errorf("未覆写班别应用默认门槛: %q", got)
	}
}

func TestValidate_BadThreshold(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Path: "./db/source.db"},
		Report:   ReportConfig{DefaultThreshold: "2200"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("非 HH:MM:SS 门槛应校验失败")
	}

	cfg.Report.DefaultThreshold = "22:00:00"
	cfg.Report.ClassThresholds = map[string]string{"夜班": "晚上十点"}
	if err := cfg.Validate(); err == nil {
		t.Error("班别门槛格式错误应校验失败")
	}

	cfg.Report.ClassThresholds = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("合法配置不应校验失败: %v", err)
	}
}
