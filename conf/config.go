package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（API密钥、交易参数等）

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"`
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TradingConfig 交易引擎参数
// 对应回测和实盘共用的仓位生命周期配置
type TradingConfig struct {
	Symbol         string        `yaml:"symbol"`           // 交易对，例如 ETH/USDT
	Leverage       int           `yaml:"leverage"`         // 杠杆倍数
	InitialEquity  float64       `yaml:"initialEquity"`    // 初始资金 USDT
	FeeRate        float64       `yaml:"feeRate"`          // 手续费率（0.06%）
	StopLossRatio  float64       `yaml:"stopLossRatio"`    // 固定止损比例
	TrailingRatio  float64       `yaml:"trailingRatio"`    // 追踪止损比例
	MaxPosRatio    float64       `yaml:"maxPosRatio"`      // 最大仓位比例
	TPPartial1     float64       `yaml:"tpPartial1"`       // 第一档止盈阈值
	TPPartial2     float64       `yaml:"tpPartial2"`       // 第二档止盈阈值
	TPFull         float64       `yaml:"tpFull"`           // 完全止盈阈值
	MinInterval    time.Duration `yaml:"minTradeInterval"` // 最小交易间隔
	MaxDailyTrades int           `yaml:"maxDailyTrades"`   // 每日最大交易次数

	// ---- 实盘 ----
	PollInterval      time.Duration `yaml:"pollInterval"`      // 轮询间隔
	SignalCooldown    time.Duration `yaml:"signalCooldown"`    // 信号冷却时间
	ReconcileInterval time.Duration `yaml:"reconcileInterval"` // 仓位对账间隔

	// ---- 回测 ----
	KlineSize int `yaml:"klineSize"` // 回测拉取的K线数量
}

// 填充未配置的参数，保证引擎总有一套可用的默认值
func (c *TradingConfig) withDefaults() {
	if c.Symbol == "" {
		c.Symbol = "ETH/USDT"
	}
	if c.Leverage <= 0 {
		c.Leverage = 2
	}
	if c.InitialEquity <= 0 {
		c.InitialEquity = 1000
	}
	if c.FeeRate <= 0 {
		c.FeeRate = 0.0006
	}
	if c.StopLossRatio <= 0 {
		c.StopLossRatio = 0.05
	}
	if c.TrailingRatio <= 0 {
		c.TrailingRatio = 0.05
	}
	if c.MaxPosRatio <= 0 {
		c.MaxPosRatio = 0.7
	}
	if c.TPPartial1 <= 0 {
		c.TPPartial1 = 0.06
	}
	if c.TPPartial2 <= 0 {
		c.TPPartial2 = 0.10
	}
	if c.TPFull <= 0 {
		c.TPFull = 0.15
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 2 * time.Hour
	}
	if c.MaxDailyTrades <= 0 {
		c.MaxDailyTrades = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.SignalCooldown <= 0 {
		c.SignalCooldown = 300 * time.Second
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 5 * time.Minute
	}
	if c.KlineSize <= 0 {
		c.KlineSize = 1000
	}
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
}

type RecorderConfig struct {
	TradePath  string `yaml:"trade-path"`  // 交易流水 JSON 文件
	EquityPath string `yaml:"equity-path"` // 资金曲线 JSON 文件
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	MaxPingCount int    `yaml:"max-ping-count"`

	Okx      `yaml:"okx"`
	Db       `yaml:"database"`
	Trading  TradingConfig  `yaml:"trading"`
	Log      LogConfig      `yaml:"log"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Recorder RecorderConfig `yaml:"recorder"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	AppConfig.Trading.withDefaults()
	return nil
}

// DefaultTradingConfig 返回一套默认交易参数，回测和测试用
func DefaultTradingConfig() TradingConfig {
	var c TradingConfig
	c.withDefaults()
	return c
}
