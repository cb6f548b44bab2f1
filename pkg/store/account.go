package store

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleGuestUser  = 0
	RoleCommonUser = 1
	RoleAdminUser  = 10
	RoleRootUser   = 100
)

const (
	UserStatusEnabled  = 1
	UserStatusDisabled = 2
)

// Account is a user record keyed by the wallet address derived from a proof.
type Account struct {
	ID            int    `gorm:"primaryKey;autoIncrement"`
	Username      string `gorm:"index;size:64;not null"`
	DisplayName   string `gorm:"size:64"`
	Role          int    `gorm:"not null"`
	Status        int    `gorm:"not null"`
	Group         string `gorm:"column:group;size:64"`
	WalletAddress string `gorm:"uniqueIndex;size:42"`
	ZkpHash       string `gorm:"size:80"` // decimal hash identifier of the last verified proof
	AffCode       string `gorm:"uniqueIndex;size:32"`
	AffCount      int
	InviterID     int `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (a *Account) Enabled() bool {
	return a.Status == UserStatusEnabled
}
