package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Release{},
		&schema.Holding{},
		&schema.SharePurchase{},
		&schema.DistributionRecord{},
		&schema.DistributionShare{},
		&schema.RateConfigRow{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateRelease registers a new release
func (s *pgStore) CreateRelease(ctx context.Context, input CreateReleaseInput) (*schema.Release, error) {
	release := schema.Release{
		ID:            input.ID,
		Title:         input.Title,
		ArtistID:      input.ArtistID,
		Genre:         input.Genre,
		AssetURI:      input.AssetURI,
		TotalShares:   input.TotalShares,
		SharesSold:    0,
		PricePerShare: input.PricePerShare,
		PlatformPct:   input.PlatformPct,
		ArtistPct:     input.ArtistPct,
		InvestorPct:   input.InvestorPct,
	}

	if err := s.db.WithContext(ctx).Create(&release).Error; err != nil {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}

	return &release, nil
}

// GetReleaseByID retrieves a release by its identifier
func (s *pgStore) GetReleaseByID(ctx context.Context, id string) (*schema.Release, error) {
	var release schema.Release
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&release).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return &release, nil
}

// ListReleases retrieves releases ordered by creation time descending
func (s *pgStore) ListReleases(ctx context.Context, limit int, offset int) ([]schema.Release, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Release{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count releases: %w", err)
	}

	var releases []schema.Release
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&releases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list releases: %w", err)
	}

	return releases, total, nil
}

// PurchaseShares atomically re-validates and applies one purchase. The
// SELECT ... FOR UPDATE on the release row serializes purchases per release
// across all replicas; quotes and other reads never take the lock.
func (s *pgStore) PurchaseShares(ctx context.Context, input PurchaseSharesInput) (*PurchaseSharesResult, error) {
	var result PurchaseSharesResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the release row; this is the per-release mutual exclusion
		var release schema.Release
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", input.ReleaseID).
			First(&release).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrReleaseNotFound
			}
			return fmt.Errorf("failed to lock release: %w", err)
		}

		// 2. A release reserving nothing for investors sells no shares
		if release.InvestorPct.IsZero() {
			return domain.ErrNoInvestorPool
		}

		// 3. Re-validate the quote against the locked state
		if err := release.SaleState().ValidatePurchase(input.Shares, input.Paid); err != nil {
			return err
		}

		// 4. Increment shares_sold
		release.SharesSold += input.Shares
		if err := tx.Model(&schema.Release{}).
			Where("id = ?", release.ID).
			Update("shares_sold", release.SharesSold).Error; err != nil {
			return fmt.Errorf("failed to update shares sold: %w", err)
		}

		// 5. Upsert the holding, adding to an existing position
		now := time.Now().UTC()
		holding := schema.Holding{
			ReleaseID:   release.ID,
			InvestorID:  input.InvestorID,
			SharesOwned: input.Shares,
			AcquiredAt:  now,
			UpdatedAt:   now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "release_id"}, {Name: "investor_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"shares_owned": gorm.Expr("holdings.shares_owned + EXCLUDED.shares_owned"),
				"updated_at":   now,
			}),
		}).Create(&holding).Error; err != nil {
			return fmt.Errorf("failed to upsert holding: %w", err)
		}

		// Re-read for the collapsed running total
		if err := tx.Where("release_id = ? AND investor_id = ?", release.ID, input.InvestorID).
			First(&holding).Error; err != nil {
			return fmt.Errorf("failed to read holding: %w", err)
		}

		// 6. Record the purchase
		purchase := schema.SharePurchase{
			ID:         input.PurchaseID,
			ReleaseID:  release.ID,
			InvestorID: input.InvestorID,
			Shares:     input.Shares,
			UnitPrice:  release.PricePerShare,
			Paid:       input.Paid,
			Status:     domain.PurchasePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		result.Purchase = &purchase
		result.Holding = &holding
		result.Release = &release
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetPurchaseByID retrieves a purchase by its identifier
func (s *pgStore) GetPurchaseByID(ctx context.Context, id string) (*schema.SharePurchase, error) {
	var purchase schema.SharePurchase
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

// MarkPurchaseSettled transitions a pending purchase to settled
func (s *pgStore) MarkPurchaseSettled(ctx context.Context, purchaseID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase schema.SharePurchase
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchaseID).
			First(&purchase).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPurchaseNotFound
			}
			return fmt.Errorf("failed to lock purchase: %w", err)
		}

		if purchase.Status == domain.PurchaseReverted {
			return domain.ErrPurchaseReverted
		}
		if purchase.Status == domain.PurchaseSettled {
			return nil
		}

		err = tx.Model(&schema.SharePurchase{}).
			Where("id = ?", purchaseID).
			Updates(map[string]interface{}{
				"status":     domain.PurchaseSettled,
				"updated_at": time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark purchase settled: %w", err)
		}
		return nil
	})
}

// RevertPurchase compensates a purchase after confirmed external settlement
// failure. The release lock ordering matches PurchaseShares so the two never
// deadlock.
func (s *pgStore) RevertPurchase(ctx context.Context, purchaseID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the release first, same order as PurchaseShares
		var purchase schema.SharePurchase
		err := tx.Where("id = ?", purchaseID).First(&purchase).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPurchaseNotFound
			}
			return fmt.Errorf("failed to get purchase: %w", err)
		}

		var release schema.Release
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchase.ReleaseID).
			First(&release).Error
		if err != nil {
			return fmt.Errorf("failed to lock release: %w", err)
		}

		// 2. Re-read the purchase under the release lock
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchaseID).
			First(&purchase).Error
		if err != nil {
			return fmt.Errorf("failed to lock purchase: %w", err)
		}
		if purchase.Status == domain.PurchaseReverted {
			return domain.ErrPurchaseReverted
		}

		// 3. Give the shares back
		if err := tx.Model(&schema.Release{}).
			Where("id = ?", release.ID).
			Update("shares_sold", gorm.Expr("shares_sold - ?", purchase.Shares)).Error; err != nil {
			return fmt.Errorf("failed to restore shares sold: %w", err)
		}

		// 4. Decrement the holding, deleting it at zero
		if err := tx.Model(&schema.Holding{}).
			Where("release_id = ? AND investor_id = ?", release.ID, purchase.InvestorID).
			Update("shares_owned", gorm.Expr("shares_owned - ?", purchase.Shares)).Error; err != nil {
			return fmt.Errorf("failed to decrement holding: %w", err)
		}
		if err := tx.Where("release_id = ? AND investor_id = ? AND shares_owned <= 0",
			release.ID, purchase.InvestorID).
			Delete(&schema.Holding{}).Error; err != nil {
			return fmt.Errorf("failed to delete zero holding: %w", err)
		}

		// 5. Mark the purchase reverted
		err = tx.Model(&schema.SharePurchase{}).
			Where("id = ?", purchaseID).
			Updates(map[string]interface{}{
				"status":     domain.PurchaseReverted,
				"updated_at": time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark purchase reverted: %w", err)
		}
		return nil
	})
}

// GetHolding retrieves one investor's holding on a release
func (s *pgStore) GetHolding(ctx context.Context, releaseID, investorID string) (*schema.Holding, error) {
	var holding schema.Holding
	err := s.db.WithContext(ctx).
		Where("release_id = ? AND investor_id = ?", releaseID, investorID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &holding, nil
}

// ListHoldings retrieves all holdings on a release in ascending investor id
// order
func (s *pgStore) ListHoldings(ctx context.Context, releaseID string) ([]schema.Holding, error) {
	var holdings []schema.Holding
	err := s.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		Order("investor_id ASC").
		Find(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	return holdings, nil
}

// CreateDistribution persists a distribution record with its share rows. A
// record already present for the same event id is returned unchanged.
func (s *pgStore) CreateDistribution(ctx context.Context, input CreateDistributionInput) (*schema.DistributionRecord, error) {
	var record schema.DistributionRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Redelivered events settle once; return the original record
		err := tx.Preload("Shares").
			Where("event_id = ?", input.EventID).
			First(&record).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing distribution: %w", err)
		}

		record = schema.DistributionRecord{
			ID:                 input.RecordID,
			ReleaseID:          input.ReleaseID,
			EventID:            input.EventID,
			Event:              input.Event,
			GrossRevenue:       input.GrossRevenue,
			PlatformAmount:     input.PlatformAmount,
			ArtistAmount:       input.ArtistAmount,
			InvestorPoolAmount: input.InvestorPoolAmount,
			RecordHash:         input.RecordHash,
			CreatedAt:          input.CreatedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create distribution record: %w", err)
		}

		if len(input.Shares) > 0 {
			shares := make([]schema.DistributionShare, len(input.Shares))
			for i, sh := range input.Shares {
				shares[i] = schema.DistributionShare{
					RecordID:    record.ID,
					InvestorID:  sh.InvestorID,
					SharesOwned: sh.SharesOwned,
					Amount:      sh.Amount,
				}
			}
			if err := tx.Create(&shares).Error; err != nil {
				return fmt.Errorf("failed to create distribution shares: %w", err)
			}
			record.Shares = shares
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetDistributionByID retrieves a record with its share rows
func (s *pgStore) GetDistributionByID(ctx context.Context, id string) (*schema.DistributionRecord, error) {
	var record schema.DistributionRecord
	err := s.db.WithContext(ctx).Preload("Shares").Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get distribution record: %w", err)
	}
	return &record, nil
}

// ListDistributions retrieves a release's records, newest first
func (s *pgStore) ListDistributions(ctx context.Context, releaseID string, limit int, offset int) ([]schema.DistributionRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.DistributionRecord{}).
		Where("release_id = ?", releaseID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count distribution records: %w", err)
	}

	var records []schema.DistributionRecord
	err := query.Preload("Shares").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list distribution records: %w", err)
	}

	return records, total, nil
}

// SaveRateConfig persists the configuration as the single current row
func (s *pgStore) SaveRateConfig(ctx context.Context, cfg rates.Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal rate configuration: %w", err)
	}

	row := schema.RateConfigRow{
		ID:        1,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save rate configuration: %w", err)
	}
	return nil
}

// LoadRateConfig returns the persisted configuration, or nil if none exists
func (s *pgStore) LoadRateConfig(ctx context.Context) (*rates.Config, error) {
	var row schema.RateConfigRow
	err := s.db.WithContext(ctx).Where("id = ?", 1).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rate configuration: %w", err)
	}

	var cfg rates.Config
	if err := json.Unmarshal(row.Payload, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate configuration: %w", err)
	}
	return &cfg, nil
}
