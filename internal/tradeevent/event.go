// Package tradeevent models one row of a brokerage trading statement as staged in the
// bronze layer.
package tradeevent

import (
	"maps"
	"strings"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Credit = "C"
	Debit  = "D"
)

type Event struct {
	UID           string
	Source        string
	RequestParams map[string]string
	FetchedAt     time.Time

	Mercado     string
	CV          string
	TipoMercado string
	EspecTitulo string
	Observacao  string
	Quantidade  int64
	Preco       decimal.Decimal
	Valor       decimal.Decimal
	// DC is the statement's credit/debit flag.
	DC string

	TaxaLiquidacao   decimal.Decimal
	Emolumentos      decimal.Decimal
	TaxaTransfAtivos decimal.Decimal

	FilePath      string
	FileName      string
	StatementDate *time.Time
}

// New validates e and stamps a uid and fetch time when they are missing.
func New(e Event) (Event, error) {
	e.DC = strings.ToUpper(strings.TrimSpace(e.DC))
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if e.UID == "" {
		e.UID = uuid.NewString()
	}
	if e.FetchedAt.IsZero() {
		e.FetchedAt = envelope.Now()
	}
	e.RequestParams = maps.Clone(e.RequestParams)
	if e.RequestParams == nil {
		e.RequestParams = map[string]string{}
	}
	return e, nil
}

func (e Event) Validate() error {
	if e.DC != Credit && e.DC != Debit {
		return errkind.Input("dc must be %q or %q, got %q", Credit, Debit, e.DC)
	}
	if e.Quantidade < 0 {
		return errkind.Input("quantidade must be >= 0, got %d", e.Quantidade)
	}
	return nil
}
