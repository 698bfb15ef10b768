package main

import (
	"context"
	"flag"
	"log"
	"time"

	json "github.com/goccy/go-json"

	api "quantflow/cmd/quantflow"
	"quantflow/conf"
	"quantflow/internal/backtest"
	"quantflow/internal/consts"
	"quantflow/internal/dao"
	"quantflow/internal/exchange"
	"quantflow/internal/handler/stream"
	"quantflow/internal/live"
	"quantflow/internal/middleware"
	"quantflow/internal/model"
	"quantflow/internal/strategy"
	"quantflow/pkg/cache"
	"quantflow/pkg/db"
	"quantflow/pkg/kafka"
	"quantflow/pkg/logger"
	"quantflow/pkg/recorder"
)

// 启动入口。两种运行模式：
//
//	backtest  拉取历史K线跑一轮回测，输出统计摘要后退出
//	live      常驻进程，轮询行情实盘交易，同时提供监控接口
//
// 回测：   ./quantflow -mode backtest -config conf/config.yaml
// 实盘：   ./quantflow -mode live -config conf/config.yaml
func main() {
	var mode, cfgPath string
	flag.StringVar(&mode, "mode", "live", "运行模式: live | backtest")
	flag.StringVar(&cfgPath, "config", "conf/config.yaml", "配置文件路径")
	flag.Parse()

	if err := conf.LoadConfig(cfgPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig
	logger.Init(appCfg.Log)
	defer logger.Sync()

	// 数据库可选，未配置时流水只保留在内存和JSON文件里
	var tradeDao *dao.TradeDao
	if appCfg.Db.Host != "" {
		datasource := db.Init(appCfg.Db)
		d, err := dao.NewTradeDao(datasource)
		if err != nil {
			logger.Fatalf("初始化dao失败: %v", err)
		}
		tradeDao = d
	}

	ex := buildExchange(appCfg)
	strat := strategy.NewMomentum()
	strategy.Register(strat)

	switch mode {
	case "backtest":
		runBacktest(appCfg, ex, strat, tradeDao)
	case "live":
		runLive(appCfg, ex, strat, tradeDao)
	default:
		logger.Fatalf("未知运行模式: %s", mode)
	}
}

// 没有配置API密钥时使用本地模拟交易所，方便联调
func buildExchange(cfg conf.Config) exchange.Exchange {
	if cfg.Okx.ApiKey == "" {
		logger.Warn("未配置OKX API密钥，使用本地模拟交易所")
		return exchange.NewSimulated(cfg.Trading.InitialEquity)
	}
	return exchange.NewOkx(cfg.Okx.ApiKey, cfg.Okx.SecretKey, cfg.Okx.Password, cfg.Okx.Simulated)
}

func runBacktest(cfg conf.Config, ex exchange.Exchange, strat strategy.Strategy, d *dao.TradeDao) {
	ctx := context.Background()

	klines, err := exchange.FetchKlineHistory(ex, cfg.Trading.Symbol, cfg.Trading.KlineSize)
	if err != nil {
		if len(klines) == 0 {
			logger.Fatalf("拉取历史K线失败: %v", err)
		}
		logger.Warnf("部分历史K线批次失败，使用已拉取的%d根: %v", len(klines), err)
	}

	driver := backtest.NewDriver(cfg.Trading, strat)
	if cfg.Recorder.TradePath != "" {
		rec := recorder.NewJSONFileRecorder(cfg.Recorder.TradePath)
		driver.OnTrade(func(r model.TradeRecord) {
			if err := rec.Record(r); err != nil {
				logger.Warnf("写入交易流水文件失败: %v", err)
			}
		})
	}

	result, err := driver.Run(ctx, klines)
	if err != nil {
		logger.Fatalf("回测失败: %v", err)
	}

	if cfg.Recorder.EquityPath != "" {
		rec := recorder.NewJSONFileRecorder(cfg.Recorder.EquityPath)
		for _, sample := range result.Equity {
			if err := rec.Record(sample); err != nil {
				logger.Warnf("写入资金曲线文件失败: %v", err)
				break
			}
		}
	}

	if d != nil {
		persistResult(ctx, d, result)
	}

	s := result.Summary
	logger.Infof("===== 回测摘要 %s =====", s.Symbol)
	logger.Infof("最终资金: %.2f USDT  收益率: %.2f%%", s.FinalCash, s.ReturnRatio)
	logger.Infof("交易次数: %d  胜: %d  负: %d  胜率: %.2f%%  盈亏比: %.2f",
		s.TotalTrades, s.WinTrades, s.LossTrades, s.WinRate, s.ProfitLossRatio)
}

// 回测结果落库，单条失败不中断
func persistResult(ctx context.Context, d *dao.TradeDao, result *backtest.Result) {
	if err := d.CreateSummary(ctx, &result.Summary); err != nil {
		logger.Warnf("摘要落库失败: %v", err)
	}
	for i := range result.Trades {
		if err := d.CreateTrade(ctx, &result.Trades[i]); err != nil {
			logger.Warnf("流水落库失败: %v", err)
		}
	}
	for i := range result.Equity {
		if err := d.CreateEquitySample(ctx, &result.Equity[i]); err != nil {
			logger.Warnf("资金曲线落库失败: %v", err)
			break
		}
	}
}

func runLive(cfg conf.Config, ex exchange.Exchange, strat strategy.Strategy, d *dao.TradeDao) {
	// redis可选，配置后风控状态跨重启保持
	var store *live.StateStore
	if cfg.Redis.Addr != "" {
		cache.InitRedis(cfg.Redis)
		store = live.NewStateStore(cache.GetRedisClient(), cfg.Trading.Symbol)
	}

	trader := live.NewTrader(cfg.Trading, ex, strat, store)

	var producer kafka.ProducerService
	if cfg.Kafka.Broker != "" {
		producer = kafka.NewKafkaProducer(cfg.Kafka.Broker, consts.KafkaTradeTopic)
	}
	var tradeRec *recorder.JSONFileRecorder
	if cfg.Recorder.TradePath != "" {
		tradeRec = recorder.NewJSONFileRecorder(cfg.Recorder.TradePath)
	}

	sh := stream.NewHandler(trader)
	sh.StartStatusLoop(5 * time.Second)

	// 每笔流水实时分发到websocket、文件、数据库和kafka
	trader.OnTrade(func(r model.TradeRecord) {
		sh.BroadcastTrade(r)
		if tradeRec != nil {
			if err := tradeRec.Record(r); err != nil {
				logger.Warnf("写入交易流水文件失败: %v", err)
			}
		}
		if d != nil {
			if err := d.CreateTrade(context.Background(), &r); err != nil {
				logger.Warnf("流水落库失败: %v", err)
			}
		}
		if producer != nil {
			data, err := json.Marshal(r)
			if err == nil {
				err = producer.Produce(context.Background(), []byte(r.Symbol), data)
			}
			if err != nil {
				logger.Warnf("流水推送kafka失败: %v", err)
			}
		}
	})

	if err := trader.Start(context.Background()); err != nil {
		logger.Fatalf("交易器启动失败: %v", err)
	}

	srv := api.NewServer(&cfg)
	srv.RegisterOnShutdown(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := trader.Stop(stopCtx); err != nil {
			logger.Errorf("交易器停机异常: %v", err)
		}
		sh.Stop()
		if producer != nil {
			producer.Close()
		}
		cache.CloseRedis()
	})
	srv.Run(middleware.NewMiddleware(), api.InitRouter(trader, d, sh))
}
