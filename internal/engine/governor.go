package engine

import (
	"sync"
	"time"

	"quantflow/internal/consts"
	"quantflow/internal/model"
	"quantflow/pkg/logger"
)

// RiskGovernorConfig 交易频次与仓位倍数控制参数
type RiskGovernorConfig struct {
	MaxConsecutiveLosses int           // 连亏多少次后开始缩减仓位
	MinTradeInterval     time.Duration // 两次开仓的最小间隔
	MaxDailyTrades       int           // 每日最大开仓次数
}

// RiskGovernor 风控：连续亏损驱动的仓位倍数 + 交易频次闸门
// 时间一律取被处理的K线/行情时间戳，按UTC日期划分"每日"
type RiskGovernor struct {
	config RiskGovernorConfig

	state         model.RiskState
	lastEntryTime time.Time
	entryDate     string // 当前计数对应的UTC日期
	dailyEntries  int
	mu            sync.Mutex
}

// NewRiskGovernor 创建风控器
func NewRiskGovernor(config RiskGovernorConfig) *RiskGovernor {
	if config.MaxConsecutiveLosses == 0 {
		config.MaxConsecutiveLosses = 3
	}
	if config.MinTradeInterval == 0 {
		config.MinTradeInterval = 2 * time.Hour
	}
	if config.MaxDailyTrades == 0 {
		config.MaxDailyTrades = 3
	}
	return &RiskGovernor{
		config: config,
		state:  model.RiskState{SizeMultiplier: 1.0},
	}
}

// RecordOutcome 根据一次平仓（或部分平仓）的盈亏更新仓位倍数
// 亏损累计连亏计数，达到阈值后倍数×0.7；盈利清零计数并×1.05
func (g *RiskGovernor) RecordOutcome(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pnl < 0 {
		g.state.ConsecutiveLosses++
		if g.state.ConsecutiveLosses >= g.config.MaxConsecutiveLosses {
			g.state.SizeMultiplier = ClampMultiplier(g.state.SizeMultiplier * 0.7)
		}
		return
	}
	g.state.ConsecutiveLosses = 0
	g.state.SizeMultiplier = ClampMultiplier(g.state.SizeMultiplier * 1.05)
}

// CanEnter 是否允许开仓
// 任一条件不满足只是拦截，不产生错误，调用方保持空仓即可
func (g *RiskGovernor) CanEnter(now time.Time, projectedFee, cash float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDay(now)

	// 最小交易间隔
	if !g.lastEntryTime.IsZero() && now.Sub(g.lastEntryTime) < g.config.MinTradeInterval {
		return false
	}

	// 每日开仓次数
	if g.dailyEntries >= g.config.MaxDailyTrades {
		return false
	}

	// 保证现金至少够付两次手续费
	if cash < projectedFee*2 {
		logger.Debugf("现金不足支付手续费: cash=%.2f fee=%.2f", cash, projectedFee)
		return false
	}

	return true
}

// RecordEntry 开仓成功后记录，推进频次计数
func (g *RiskGovernor) RecordEntry(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDay(now)
	g.lastEntryTime = now
	g.dailyEntries++
}

// State 返回当前风控状态快照
func (g *RiskGovernor) State() model.RiskState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot 导出可持久化的完整状态（实盘重启恢复用）
func (g *RiskGovernor) Snapshot() GovernorSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GovernorSnapshot{
		State:         g.state,
		LastEntryTime: g.lastEntryTime,
		EntryDate:     g.entryDate,
		DailyEntries:  g.dailyEntries,
	}
}

// Restore 从持久化快照恢复状态
func (g *RiskGovernor) Restore(s GovernorSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s.State
	g.state.SizeMultiplier = ClampMultiplier(g.state.SizeMultiplier)
	if g.state.SizeMultiplier == 0 {
		g.state.SizeMultiplier = 1.0
	}
	g.lastEntryTime = s.LastEntryTime
	g.entryDate = s.EntryDate
	g.dailyEntries = s.DailyEntries
}

// GovernorSnapshot 风控器的持久化形态
type GovernorSnapshot struct {
	State         model.RiskState `json:"state"`
	LastEntryTime time.Time       `json:"last_entry_time"`
	EntryDate     string          `json:"entry_date"`
	DailyEntries  int             `json:"daily_entries"`
}

// 跨日重置每日计数。日界取时间戳的UTC日期：
// 回测重放无歧义，实盘统一用交易所时间戳的UTC日期，避免本地时区漂移
func (g *RiskGovernor) rollDay(now time.Time) {
	date := now.UTC().Format(consts.DateLayout)
	if date != g.entryDate {
		g.entryDate = date
		g.dailyEntries = 0
	}
}
