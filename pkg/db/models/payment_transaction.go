package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/pkg/enums"
)

// PaymentTransaction is the settlement ledger row for one gateway attempt.
// (Provider, TxnRef) is unique; a retransmitted callback updates the existing
// row instead of inserting a duplicate.
type PaymentTransaction struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	Provider     string                 `gorm:"column:provider;not null;uniqueIndex:ux_payment_transactions_provider_ref"`
	TxnRef       string                 `gorm:"column:txn_ref;not null;uniqueIndex:ux_payment_transactions_provider_ref"`
	Amount       int64                  `gorm:"column:amount;not null"`
	ResponseCode string                 `gorm:"column:response_code;not null"`
	Status       enums.SettlementStatus `gorm:"column:status;type:text;not null"`
	RawPayload   string                 `gorm:"column:raw_payload;not null"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
