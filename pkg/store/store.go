package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("account not found")

// Open connects to dsn. Postgres URLs and key=value DSNs select Postgres,
// anything else is treated as a SQLite file.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isPostgres(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cannot establish database connection: %w", err)
	}
	if dsn == ":memory:" {
		// Every new connection would get its own empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

type Store struct {
	db *gorm.DB
}

// New migrates the accounts table and returns a store over db.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("migrating accounts failed: %w", err)
	}
	return &Store{db: db}, nil
}

// NormalizeAddress returns the checksummed form of a hex address, or addr
// unchanged if it is not one.
func NormalizeAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// WalletAddressTaken reports whether any account, including a deleted one,
// was ever registered for addr.
func (s *Store) WalletAddressTaken(ctx context.Context, addr string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Unscoped().Model(&Account{}).
		Where("wallet_address = ?", NormalizeAddress(addr)).
		Count(&n).Error
	return n > 0, err
}

// FindByWalletAddress loads the live account for addr. A deleted or unknown
// account yields a zero-ID record and no error.
func (s *Store) FindByWalletAddress(ctx context.Context, addr string) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).Where("wallet_address = ?", NormalizeAddress(addr)).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) FindByID(ctx context.Context, id int) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &a, err
}

// Create inserts a new account with a fresh affiliate code. A non-zero
// inviterID is recorded and credited to the inviter in the same transaction.
func (s *Store) Create(ctx context.Context, a *Account, inviterID int) error {
	a.WalletAddress = NormalizeAddress(a.WalletAddress)
	a.AffCode = newAffCode()
	a.InviterID = inviterID

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		if inviterID == 0 {
			return nil
		}
		return tx.Model(&Account{}).
			Where("id = ?", inviterID).
			UpdateColumn("aff_count", gorm.Expr("aff_count + ?", 1)).Error
	})
}

// Update persists the identity, authorization and proof link fields of a.
func (s *Store) Update(ctx context.Context, a *Account) error {
	if a.ID == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Model(a).
		Select("Username", "DisplayName", "Role", "Status", "Group", "ZkpHash").
		Updates(a).Error
}

// Delete soft-deletes an account. Its wallet address stays reserved.
func (s *Store) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(&Account{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveInviterID returns the id of the account owning affCode.
func (s *Store) ResolveInviterID(ctx context.Context, affCode string) (int, error) {
	var a Account
	err := s.db.WithContext(ctx).Select("id").Where("aff_code = ?", affCode).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func newAffCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
