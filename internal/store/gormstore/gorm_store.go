// Package gormstore 用 Gorm + SQLite 持久化持仓与委托快照。
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	storemodel "swingdesk/internal/store/model"
	"swingdesk/internal/types"

	"github.com/glebarez/sqlite"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type positionModel = storemodel.PositionModel
type orderModel = storemodel.OrderModel

// ErrNotFound 在按 ID 查询未命中时返回。
var ErrNotFound = errors.New("record not found")

// GormStore 持有持仓/委托两张表。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 打开（必要时创建）落库文件。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 落库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&positionModel{}, &orderModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：给 HTTP 并发读留一点余量，同时控制锁竞争。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close 关闭底层连接。
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertPositions 按 position_id 插入或整体覆盖持仓快照。
func (s *GormStore) UpsertPositions(ctx context.Context, positions []types.Position) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if len(positions) == 0 {
		return nil
	}
	now := time.Now().Unix()
	models := make([]positionModel, 0, len(positions))
	for _, p := range positions {
		m, err := positionToModel(p, now)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "position_id"}},
			UpdateAll: true,
		}).
		Create(&models).Error
}

// ListPositions 返回持仓列表，status 为空表示全部。
func (s *GormStore) ListPositions(ctx context.Context, status string) ([]types.Position, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	q := s.db.WithContext(ctx).Model(&positionModel{})
	if status = strings.TrimSpace(status); status != "" {
		q = q.Where("status = ?", status)
	}
	var models []positionModel
	if err := q.Order("entry_ts ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(models))
	for _, m := range models {
		p, err := modelToPosition(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPosition 按 position_id 读取。
func (s *GormStore) GetPosition(ctx context.Context, positionID string) (types.Position, error) {
	if s == nil || s.db == nil {
		return types.Position{}, fmt.Errorf("gorm store 未初始化")
	}
	positionID = strings.TrimSpace(positionID)
	if positionID == "" {
		return types.Position{}, fmt.Errorf("position_id 必填")
	}
	var m positionModel
	err := s.db.WithContext(ctx).Where("position_id = ?", positionID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Position{}, ErrNotFound
	}
	if err != nil {
		return types.Position{}, err
	}
	return modelToPosition(m)
}

// UpsertOrders 按 order_id 插入或覆盖委托。
func (s *GormStore) UpsertOrders(ctx context.Context, orders []types.Order) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if len(orders) == 0 {
		return nil
	}
	now := time.Now().Unix()
	models := make([]orderModel, 0, len(orders))
	for _, o := range orders {
		models = append(models, orderToModel(o, now))
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(&models).Error
}

// ListOrders 返回委托列表，positionID 为空表示全部。
func (s *GormStore) ListOrders(ctx context.Context, positionID string) ([]types.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	q := s.db.WithContext(ctx).Model(&orderModel{})
	if positionID = strings.TrimSpace(positionID); positionID != "" {
		q = q.Where("position_id = ?", positionID)
	}
	var models []orderModel
	if err := q.Order("created_ts ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(models))
	for _, m := range models {
		out = append(out, modelToOrder(m))
	}
	return out, nil
}

// --------------------- 转换 -------------------------

func positionToModel(p types.Position, now int64) (positionModel, error) {
	if strings.TrimSpace(p.PositionID) == "" {
		return positionModel{}, fmt.Errorf("position %s 缺少 position_id", p.Ticker)
	}
	m := positionModel{
		PositionID:        p.PositionID,
		Ticker:            p.Ticker,
		Status:            p.Status,
		EntryTS:           p.EntryDate.UnixMilli(),
		EntryPrice:        p.EntryPrice,
		StopPrice:         p.StopPrice,
		Shares:            p.Shares,
		SourceOrderID:     p.SourceOrderID,
		InitialRisk:       cloneFloat(p.InitialRisk),
		MaxFavorablePrice: cloneFloat(p.MaxFavorablePrice),
		ExitPrice:         cloneFloat(p.ExitPrice),
		CurrentPrice:      cloneFloat(p.CurrentPrice),
		Notes:             p.Notes,
		CreatedAtUnix:     now,
		UpdatedAtUnix:     now,
	}
	if p.ExitDate != nil {
		ts := p.ExitDate.UnixMilli()
		m.ExitTS = &ts
	}
	// nil 切片落 NULL，空切片落 "[]"，读回时保持区别。
	if p.ExitOrderIDs != nil {
		raw, err := json.Marshal(p.ExitOrderIDs)
		if err != nil {
			return positionModel{}, err
		}
		m.ExitOrderIDs = datatypes.JSON(raw)
	}
	return m, nil
}

func modelToPosition(m positionModel) (types.Position, error) {
	p := types.Position{
		Ticker:            m.Ticker,
		Status:            m.Status,
		EntryDate:         time.UnixMilli(m.EntryTS).UTC(),
		EntryPrice:        m.EntryPrice,
		StopPrice:         m.StopPrice,
		Shares:            m.Shares,
		PositionID:        m.PositionID,
		SourceOrderID:     m.SourceOrderID,
		InitialRisk:       cloneFloat(m.InitialRisk),
		MaxFavorablePrice: cloneFloat(m.MaxFavorablePrice),
		ExitPrice:         cloneFloat(m.ExitPrice),
		CurrentPrice:      cloneFloat(m.CurrentPrice),
		Notes:             m.Notes,
	}
	if m.ExitTS != nil {
		ts := time.UnixMilli(*m.ExitTS).UTC()
		p.ExitDate = &ts
	}
	if len(m.ExitOrderIDs) > 0 {
		ids := make([]string, 0, 2)
		if err := json.Unmarshal(m.ExitOrderIDs, &ids); err != nil {
			return types.Position{}, fmt.Errorf("position %s exit_order_ids 损坏: %w", m.PositionID, err)
		}
		p.ExitOrderIDs = ids
	}
	return p, nil
}

func orderToModel(o types.Order, now int64) orderModel {
	m := orderModel{
		OrderID:       o.OrderID,
		Ticker:        o.Ticker,
		Status:        o.Status,
		Type:          o.Type,
		Kind:          o.Kind,
		Quantity:      o.Quantity,
		LimitPrice:    cloneFloat(o.LimitPrice),
		StopPrice:     cloneFloat(o.StopPrice),
		CreatedTS:     o.CreatedDate.UnixMilli(),
		ParentOrderID: o.ParentOrderID,
		PositionID:    o.PositionID,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	if o.FilledDate != nil {
		ts := o.FilledDate.UnixMilli()
		m.FilledTS = &ts
	}
	return m
}

func modelToOrder(m orderModel) types.Order {
	o := types.Order{
		OrderID:       m.OrderID,
		Ticker:        m.Ticker,
		Status:        m.Status,
		Type:          m.Type,
		Kind:          m.Kind,
		Quantity:      m.Quantity,
		LimitPrice:    cloneFloat(m.LimitPrice),
		StopPrice:     cloneFloat(m.StopPrice),
		CreatedDate:   time.UnixMilli(m.CreatedTS).UTC(),
		ParentOrderID: m.ParentOrderID,
		PositionID:    m.PositionID,
	}
	if m.FilledTS != nil {
		ts := time.UnixMilli(*m.FilledTS).UTC()
		o.FilledDate = &ts
	}
	return o
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
