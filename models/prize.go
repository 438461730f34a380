package models

import "time"

type PrizeType string

const (
	PrizeCash   PrizeType = "cash"
	PrizeToken  PrizeType = "token"
	PrizeNFT    PrizeType = "nft"
	PrizeItem   PrizeType = "item"
	PrizePoints PrizeType = "points"
)

type PrizeStatus string

const (
	PrizePending    PrizeStatus = "pending"
	PrizeCalculated PrizeStatus = "calculated"
	PrizeProcessing PrizeStatus = "processing"
	PrizeDistributed PrizeStatus = "distributed"
	PrizeFailed     PrizeStatus = "failed"
	PrizeCancelled  PrizeStatus = "cancelled"
)

const MaxPrizeRetries = 3

var prizeTransitions = map[PrizeStatus][]PrizeStatus{
	PrizePending:     {PrizeCalculated, PrizeCancelled},
	PrizeCalculated:  {PrizeProcessing, PrizeCancelled},
	PrizeProcessing:  {PrizeDistributed, PrizeFailed},
	PrizeFailed:      {PrizeCalculated, PrizeCancelled},
	PrizeDistributed: {},
	PrizeCancelled:   {},
}

func IsValidPrizeStatusTransition(from, to PrizeStatus) bool {
	for _, allowed := range prizeTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Prize is one placement's payout row within a tournament's prize pool.
type Prize struct {
	ID            int         `json:"id" db:"id"`
	TournamentID  int         `json:"tournament_id" db:"tournament_id"`
	Placement     int         `json:"placement" db:"placement"` // 0 = bonus
	RecipientID   *int        `json:"recipient_id,omitempty" db:"recipient_id"`
	RecipientName *string     `json:"recipient_name,omitempty" db:"recipient_name"`
	TeamID        *int        `json:"team_id,omitempty" db:"team_id"`
	Type          PrizeType   `json:"prize_type" db:"prize_type"`
	Amount        float64     `json:"amount" db:"amount"`
	Currency      string      `json:"currency" db:"currency"`
	PercentageOfPool *float64 `json:"percentage_of_pool,omitempty" db:"percentage_of_pool"`
	Status        PrizeStatus `json:"status" db:"status"`

	WalletID          *string `json:"wallet_id,omitempty" db:"wallet_id"`
	WalletAddress     *string `json:"wallet_address,omitempty" db:"wallet_address"`
	IdentityVerified  bool    `json:"identity_verified" db:"identity_verified"`

	TransactionID  *string    `json:"transaction_id,omitempty" db:"transaction_id"`
	DistributedAt  *time.Time `json:"distributed_at,omitempty" db:"distributed_at"`
	DistributedBy  *int       `json:"distributed_by,omitempty" db:"distributed_by"`
	FailureReason  *string    `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryCount     int        `json:"retry_count" db:"retry_count"`
	LastRetryAt    *time.Time `json:"last_retry_at,omitempty" db:"last_retry_at"`

	TaxFormOnFile  bool    `json:"tax_form_on_file" db:"tax_form_on_file"`
	TaxFormKey     *string `json:"-" db:"tax_form_key"`
	TaxRate        float64 `json:"tax_rate" db:"tax_rate"`
	TaxWithheld    float64 `json:"tax_withheld" db:"tax_withheld"`
	NetAmount      float64 `json:"net_amount" db:"net_amount"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (p *Prize) ApplyTax() {
	p.TaxWithheld = p.Amount * (p.TaxRate / 100)
	p.NetAmount = p.Amount - p.TaxWithheld
}

func (p Prize) RetryEligible() bool {
	return p.Status == PrizeFailed && p.RetryCount < MaxPrizeRetries
}

// PrizePoolEntry is one row of the input to setup-pool.
type PrizePoolEntry struct {
	Placement        int
	Amount           *float64
	PercentageOfPool *float64
	Type             PrizeType
}

type PrizeFilter struct {
	TournamentID *int
	RecipientID  *int
	Statuses     []PrizeStatus
	Page         int
	Limit        int
}
