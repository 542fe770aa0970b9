package billing

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Fee item statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusVoided  = "voided"
	StatusOverdue = "overdue"
)

// FeeItem is a single fee charged to a student. Amount is in minor currency
// units.
type FeeItem struct {
	ID             int       `json:"id"`
	Reference      string    `json:"reference"`
	OrganizationID int       `json:"organization_id"`
	StudentID      int       `json:"student_id"`
	FeeTypeID      int       `json:"fee_type_id"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	DueDate        time.Time `json:"due_date"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (fi FeeItem) IsSettled() bool {
	return fi.Status == StatusPaid || fi.Status == StatusVoided
}

type NewFeeItem struct {
	OrganizationID int       `json:"organization_id" validate:"required"`
	StudentID      int       `json:"student_id" validate:"required"`
	FeeTypeID      int       `json:"fee_type_id" validate:"required"`
	Amount         int64     `json:"amount" validate:"required,gt=0"`
	DueDate        time.Time `json:"due_date" validate:"required"`
}

func (nfi *NewFeeItem) Validate() error {
	return core.Validate.Struct(nfi)
}
