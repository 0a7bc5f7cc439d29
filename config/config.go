package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Database DatabaseConfig `mapstructure:"db"`
	Data     DataConfig     `mapstructure:"data"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig SQLite 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DataConfig 来源 Excel 档案路径配置
type DataConfig struct {
	PunchPath  string `mapstructure:"punch_path"`  // 刷卡资料工作簿
	RosterPath string `mapstructure:"roster_path"` // 班别资料工作簿
}

// ReportConfig 报表输出配置
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	ListPath  string `mapstructure:"list_path"` // 比对清单 CSV（可选）

	// DefaultThreshold 夜点门槛时间，格式 HH:MM:SS。
	// 最后一次刷卡时间严格晚于门槛才符合夜点资格。
	DefaultThreshold string `mapstructure:"default_threshold"`

	// ClassThresholds 班别级别的门槛覆写，key 为班别名称。
	// 目前资料面全部班别共用预设门槛，此处仅保留覆写钩子。
	ClassThresholds map[string]string `mapstructure:"class_thresholds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("db.path", "./db/source.db")
	v.SetDefault("data.punch_path", "./data/刷卡資料.xlsx")
	v.SetDefault("data.roster_path", "./data/list.xlsx")

	v.SetDefault("report.output_dir", "./output")
	v.SetDefault("report.list_path", "")
	v.SetDefault("report.default_threshold", "22:00:00")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PUNCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("配置校验失败: db.path 不能为空")
	}
	if !validThreshold(c.Report.DefaultThreshold) {
		return fmt.Errorf("配置校验失败: report.default_threshold 必须为 HH:MM:SS 格式")
	}
	for class, th := range c.Report.ClassThresholds {
		if !validThreshold(th) {
			return fmt.Errorf("配置校验失败: 班别 %q 的门槛 %q 必须为 HH:MM:SS 格式", class, th)
		}
	}
	return nil
}

// ThresholdFor 返回指定班别的夜点门槛，未覆写时使用预设值
func (c *ReportConfig) ThresholdFor(class string) string {
	if th, ok := c.ClassThresholds[class]; ok {
		return th
	}
	return c.DefaultThreshold
}

// validThreshold 门槛格式检查：HH:MM:SS，各段为两位数字
func validThreshold(s string) bool {
	if len(s) != 8 || s[2] != ':' || s[5] != ':' {
		return false
	}
	for i, r := range s {
		if i == 2 || i == 5 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
