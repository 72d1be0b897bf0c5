// Package bronze stages envelopes and trade statement rows in the relational bronze layer.
package bronze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"
	"financeshub/internal/tradeevent"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBatchSize = 500

type Options struct {
	// DSN is used when a call does not pass one.
	DSN           string
	EnvelopeTable string
	TradeTable    string
	BatchSize     int
	// Dialector opens a gorm dialector for a DSN; defaults to Postgres.
	Dialector func(dsn string) gorm.Dialector
}

// Store opens one connection per call and closes it before returning.
type Store struct {
	opt Options
}

func New(opt Options) *Store {
	if strings.TrimSpace(opt.EnvelopeTable) == "" {
		opt.EnvelopeTable = DefaultEnvelopeTable
	}
	if strings.TrimSpace(opt.TradeTable) == "" {
		opt.TradeTable = DefaultTradeTable
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = defaultBatchSize
	}
	if opt.Dialector == nil {
		opt.Dialector = postgres.Open
	}
	return &Store{opt: opt}
}

// InsertEnvelopes writes envs into the envelope table inside one transaction and returns the
// number of rows written. Empty input returns 0 without touching the database.
func (s *Store) InsertEnvelopes(ctx context.Context, dsn string, envs []envelope.Envelope) (int, error) {
	if len(envs) == 0 {
		return 0, nil
	}
	rows := make([]envelopeRow, 0, len(envs))
	for _, env := range envs {
		params, err := toJSON(env.RequestParams)
		if err != nil {
			return 0, fmt.Errorf("encode request_params of %s: %w", env.UID, err)
		}
		payload, err := toJSON(env.Payload)
		if err != nil {
			return 0, fmt.Errorf("encode payload of %s: %w", env.UID, err)
		}
		rows = append(rows, envelopeRow{
			Source:        env.Source,
			Endpoint:      env.Endpoint,
			RequestParams: params,
			Asset:         env.Asset,
			Currency:      env.Currency,
			UID:           env.UID,
			FetchedAt:     env.FetchedAt,
			Payload:       payload,
		})
	}
	if err := s.insert(ctx, dsn, s.opt.EnvelopeTable, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// InsertTradeEvents writes statement rows into the trade table inside one transaction.
func (s *Store) InsertTradeEvents(ctx context.Context, dsn string, events []tradeevent.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rows := make([]tradeEventRow, 0, len(events))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("trade event %s: %w", e.UID, err)
		}
		params, err := toJSON(e.RequestParams)
		if err != nil {
			return 0, fmt.Errorf("encode request_params of %s: %w", e.UID, err)
		}
		rows = append(rows, tradeEventRow{
			UID:              e.UID,
			Source:           e.Source,
			RequestParams:    params,
			FetchedAt:        e.FetchedAt,
			Mercado:          e.Mercado,
			CV:               e.CV,
			TipoMercado:      e.TipoMercado,
			EspecTitulo:      e.EspecTitulo,
			Observacao:       e.Observacao,
			Quantidade:       e.Quantidade,
			Preco:            e.Preco,
			Valor:            e.Valor,
			DC:               e.DC,
			TaxaLiquidacao:   e.TaxaLiquidacao,
			Emolumentos:      e.Emolumentos,
			TaxaTransfAtivos: e.TaxaTransfAtivos,
			FilePath:         e.FilePath,
			FileName:         e.FileName,
			StatementDate:    e.StatementDate,
		})
	}
	if err := s.insert(ctx, dsn, s.opt.TradeTable, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// EnsureSchema creates the bronze schema (for schema-qualified table names) and migrates both
// staging tables.
func (s *Store) EnsureSchema(ctx context.Context, dsn string) error {
	db, closeFn, err := s.open(dsn)
	if err != nil {
		return err
	}
	defer closeFn()
	db = db.WithContext(ctx)
	for _, table := range []string{s.opt.EnvelopeTable, s.opt.TradeTable} {
		if schema, _, ok := strings.Cut(table, "."); ok {
			if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schema)).Error; err != nil {
				return fmt.Errorf("create schema %s: %w", schema, err)
			}
		}
	}
	if err := db.Table(s.opt.EnvelopeTable).AutoMigrate(&envelopeRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.opt.EnvelopeTable, err)
	}
	if err := db.Table(s.opt.TradeTable).AutoMigrate(&tradeEventRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.opt.TradeTable, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, dsn, table string, rows any) error {
	db, closeFn, err := s.open(dsn)
	if err != nil {
		return err
	}
	defer closeFn()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(table).CreateInBatches(rows, s.opt.BatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) resolveDSN(dsn string) (string, error) {
	if d := strings.TrimSpace(dsn); d != "" {
		return d, nil
	}
	if d := strings.TrimSpace(s.opt.DSN); d != "" {
		return d, nil
	}
	return "", errkind.Config("FINANCES_HUB_PG_DSN is not set")
}

func (s *Store) open(dsn string) (*gorm.DB, func(), error) {
	resolved, err := s.resolveDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	db, err := gorm.Open(s.opt.Dialector(resolved), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect bronze store: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
