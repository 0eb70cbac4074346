package models

import (
	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices. Line items are stored
// as a JSONB column, not a child table.
type InvoiceModel struct {
	AggregateModel
	Number        string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientName    string                `gorm:"type:varchar(200)"`
	TableLabel    string                `gorm:"type:varchar(50)"`
	Items         billing.LineItems     `gorm:"type:jsonb;default:'[]'"`
	ReductionCdf  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	ReductionUsd  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status        billing.InvoiceStatus `gorm:"type:smallint;not null;default:0;index"`
	Debt          bool                  `gorm:"not null;default:false;index"`
	PaymentMethod string                `gorm:"type:varchar(50)"`
	AmountPaidCdf *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	AmountPaidUsd *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	Remark        string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice aggregate.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		Number:        m.Number,
		ClientName:    m.ClientName,
		TableLabel:    m.TableLabel,
		Items:         m.Items,
		ReductionCdf:  m.ReductionCdf,
		ReductionUsd:  m.ReductionUsd,
		Status:        m.Status.Normalize(),
		Debt:          m.Debt,
		PaymentMethod: m.PaymentMethod,
		AmountPaidCdf: m.AmountPaidCdf,
		AmountPaidUsd: m.AmountPaidUsd,
		Remark:        m.Remark,
	}
}

// InvoiceModelFromDomain converts a domain Invoice to a persistence model
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	model := &InvoiceModel{
		Number:        inv.Number,
		ClientName:    inv.ClientName,
		TableLabel:    inv.TableLabel,
		Items:         inv.Items,
		ReductionCdf:  inv.ReductionCdf,
		ReductionUsd:  inv.ReductionUsd,
		Status:        inv.Status,
		Debt:          inv.Debt,
		PaymentMethod: inv.PaymentMethod,
		AmountPaidCdf: inv.AmountPaidCdf,
		AmountPaidUsd: inv.AmountPaidUsd,
		Remark:        inv.Remark,
	}
	model.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return model
}

// PaymentModel is the persistence model for payment records
type PaymentModel struct {
	BaseModel
	InvoiceID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	RateSnapshot decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Observation  string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:   m.BaseModel.ToDomain(),
		InvoiceID:    m.InvoiceID,
		Amount:       m.Amount,
		Currency:     valueobject.Currency(m.Currency),
		RateSnapshot: m.RateSnapshot,
		Observation:  m.Observation,
	}
}

// PaymentModelFromDomain converts a domain Payment to a persistence model
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	model := &PaymentModel{
		InvoiceID:    p.InvoiceID,
		Amount:       p.Amount,
		Currency:     string(p.Currency),
		RateSnapshot: p.RateSnapshot,
		Observation:  p.Observation,
	}
	model.FromDomainBaseEntity(p.BaseEntity)
	return model
}

// SettingModel stores venue-wide key/value settings, such as the exchange rate
type SettingModel struct {
	BaseModel
	Key   string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Value string `gorm:"type:varchar(500);not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}
