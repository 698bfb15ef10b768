package dao

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"quantflow/internal/model"
)

// 交易流水、资金曲线、运行摘要的持久化

type TradeDao struct {
	db   *gorm.DB
	node *snowflake.Node
}

func NewTradeDao(db *gorm.DB) (*TradeDao, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &TradeDao{db: db, node: node}, nil
}

// CreateTrade 插入一条交易流水，RecordId为空时生成雪花ID
func (d *TradeDao) CreateTrade(ctx context.Context, rec *model.TradeRecord) error {
	if rec.RecordId == "" {
		rec.RecordId = d.node.Generate().String()
	}
	return d.db.WithContext(ctx).Create(rec).Error
}

// CreateEquitySample 插入一个资金曲线采样点
func (d *TradeDao) CreateEquitySample(ctx context.Context, s *model.EquitySample) error {
	return d.db.WithContext(ctx).Create(s).Error
}

// CreateSummary 插入一条运行摘要
func (d *TradeDao) CreateSummary(ctx context.Context, s *model.RunSummary) error {
	if s.RunId == "" {
		s.RunId = d.node.Generate().String()
	}
	return d.db.WithContext(ctx).Create(s).Error
}

// ListTrades 按时间升序查询某个交易对的流水
func (d *TradeDao) ListTrades(ctx context.Context, symbol string, limit int) ([]model.TradeRecord, error) {
	var out []model.TradeRecord
	q := d.db.WithContext(ctx).Model(&model.TradeRecord{}).
		Where("symbol = ?", symbol).
		Order("timestamp ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListEquity 按时间升序查询资金曲线
func (d *TradeDao) ListEquity(ctx context.Context, symbol string, limit int) ([]model.EquitySample, error) {
	var out []model.EquitySample
	q := d.db.WithContext(ctx).Model(&model.EquitySample{}).
		Where("symbol = ?", symbol).
		Order("timestamp ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// LastSummary 查询最近一次运行摘要
func (d *TradeDao) LastSummary(ctx context.Context, symbol string) (s model.RunSummary, err error) {
	err = d.db.WithContext(ctx).Model(&model.RunSummary{}).
		Where("symbol = ?", symbol).
		Order("ended_at DESC").
		Limit(1).
		Find(&s).Error
	return
}
