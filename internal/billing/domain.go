package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// TenancyStatus enumerates tenancy statuses.
type TenancyStatus string

const (
	TenancyStatusActive TenancyStatus = "ACTIVE"
	TenancyStatusEnded  TenancyStatus = "ENDED"
)

// InvoiceStatus enumerates invoice statuses.
type InvoiceStatus string

const (
	InvoiceStatusOpen    InvoiceStatus = "OPEN"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// RunStatus enumerates invoice run statuses.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "STARTED"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// LineType enumerates invoice line types.
type LineType string

const (
	LineTypeRent         LineType = "rent"
	LineTypeOpex         LineType = "opex"
	LineTypeHeating      LineType = "heating"
	LineTypeWater        LineType = "water"
	LineTypeExtra        LineType = "extra"
	LineTypeCarryForward LineType = "carry_forward"
)

// ExtraCost is one entry of a tenancy's free-form extra-cost map.
type ExtraCost struct {
	Key       string
	Amount    decimal.Decimal
	VatRate   decimal.Decimal
	Reference string
}

// Tenancy is a billable lease. All advances are gross monthly amounts.
type Tenancy struct {
	ID             int64
	OrgID          int64
	PropertyID     int64
	UnitID         int64
	TenantID       int64
	MonthlyRent    decimal.Decimal
	OpexAdvance    decimal.Decimal
	HeatingAdvance decimal.Decimal
	WaterAdvance   decimal.Decimal
	ExtraCosts     []ExtraCost
	Status         TenancyStatus
	StartedAt      time.Time
	EndedAt        *time.Time
}

// AdvanceFor returns the gross monthly advance for a charge type.
func (t Tenancy) AdvanceFor(lineType LineType) decimal.Decimal {
	switch lineType {
	case LineTypeRent:
		return t.MonthlyRent
	case LineTypeOpex:
		return t.OpexAdvance
	case LineTypeHeating:
		return t.HeatingAdvance
	case LineTypeWater:
		return t.WaterAdvance
	default:
		return decimal.Zero
	}
}

// Unit is a physical rental unit belonging to exactly one property.
type Unit struct {
	ID             int64
	OrgID          int64
	PropertyID     int64
	Category       string
	Area           decimal.Decimal
	VacancyOpex    decimal.Decimal
	VacancyHeating decimal.Decimal
}

// Invoice is one billing period's charge for one tenancy (or a vacant
// unit). Component amounts are gross with the VAT contained in them;
// Total = sum of gross components + carry-forward, rounded to cent.
type Invoice struct {
	ID           int64
	OrgID        int64
	PropertyID   int64
	UnitID       int64
	TenancyID    int64
	Period       shared.Period
	RentGross    decimal.Decimal
	RentVat      decimal.Decimal
	OpexGross    decimal.Decimal
	OpexVat      decimal.Decimal
	HeatingGross decimal.Decimal
	HeatingVat   decimal.Decimal
	WaterGross   decimal.Decimal
	WaterVat     decimal.Decimal
	OtherGross   decimal.Decimal
	OtherVat     decimal.Decimal
	CarryForward decimal.Decimal
	Total        decimal.Decimal
	PaidAmount   decimal.Decimal
	Status       InvoiceStatus
	DueDate      time.Time
	Vacancy      bool
	CreatedAt    time.Time
}

// InvoiceLine is one charge line. Amount is the gross line amount the
// rounding reconciler guarantees to sum to the invoice total; Net and
// VatRate describe the tax split before reconciliation.
type InvoiceLine struct {
	ID          int64
	InvoiceID   int64
	Type        LineType
	Description string
	Net         decimal.Decimal
	VatRate     decimal.Decimal
	Amount      decimal.Decimal
	Reference   string
}

// InvoiceRun is one bulk-generation attempt for an (organization, period).
type InvoiceRun struct {
	ID         int64
	OrgID      int64
	Period     shared.Period
	Reference  uuid.UUID
	Status     RunStatus
	Error      string
	StartedBy  int64
	StartedAt  time.Time
	FinishedAt *time.Time
}
