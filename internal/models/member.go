package models

// Member is a customer account gifts are issued to.
type Member struct {
	ID           int64   `db:"member_id" json:"memberId"`
	Login        string  `db:"member_login" json:"memberLogin"`
	MerchantName string  `db:"merchant_name" json:"merchantName"`
	Currency     string  `db:"currency" json:"currency"`
	VIPLevel     *string `db:"vip_level" json:"vipLevel,omitempty"`
	IsActive     bool    `db:"is_active" json:"isActive"`
}
