package bronze

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DefaultEnvelopeTable = "bronze.ingestion_events"
	DefaultTradeTable    = "bronze.pdf_nuinvest_trade_events"
)

type envelopeRow struct {
	Source        string         `gorm:"column:source;type:text"`
	Endpoint      string         `gorm:"column:endpoint;type:text"`
	RequestParams datatypes.JSON `gorm:"column:request_params"`
	Asset         string         `gorm:"column:asset;type:text;index"`
	Currency      string         `gorm:"column:currency;type:text"`
	UID           string         `gorm:"column:uid;type:text;index"`
	FetchedAt     time.Time      `gorm:"column:fetched_at"`
	Payload       datatypes.JSON `gorm:"column:payload"`
}

type tradeEventRow struct {
	UID              string          `gorm:"column:uid;type:text;index"`
	Source           string          `gorm:"column:source;type:text"`
	RequestParams    datatypes.JSON  `gorm:"column:request_params"`
	FetchedAt        time.Time       `gorm:"column:fetched_at"`
	Mercado          string          `gorm:"column:mercado;type:text"`
	CV               string          `gorm:"column:cv;type:text"`
	TipoMercado      string          `gorm:"column:tipo_mercado;type:text"`
	EspecTitulo      string          `gorm:"column:espec_titulo;type:text"`
	Observacao       string          `gorm:"column:observacao;type:text"`
	Quantidade       int64           `gorm:"column:quantidade"`
	Preco            decimal.Decimal `gorm:"column:preco;type:numeric"`
	Valor            decimal.Decimal `gorm:"column:valor;type:numeric"`
	DC               string          `gorm:"column:dc;type:text"`
	TaxaLiquidacao   decimal.Decimal `gorm:"column:taxa_liquidacao;type:numeric"`
	Emolumentos      decimal.Decimal `gorm:"column:emolumentos;type:numeric"`
	TaxaTransfAtivos decimal.Decimal `gorm:"column:taxa_transf_ativos;type:numeric"`
	FilePath         string          `gorm:"column:file_path;type:text"`
	FileName         string          `gorm:"column:file_name;type:text"`
	StatementDate    *time.Time      `gorm:"column:statement_date;type:date"`
}
