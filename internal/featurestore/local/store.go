// Package local is a relational feature store for development and single-host
// deployments. It keeps feature groups, views, models and secrets in SQLite or
// PostgreSQL through GORM.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
)

type featureRow struct {
	ID        uint   `gorm:"primaryKey"`
	GroupName string `gorm:"size:128;not null;uniqueIndex:idx_feature_rows_key"`
	Version   int    `gorm:"not null;uniqueIndex:idx_feature_rows_key"`
	Day       string `gorm:"size:10;not null;uniqueIndex:idx_feature_rows_key"`
	Payload   string `gorm:"not null"`
}

type resource struct {
	ID        uint   `gorm:"primaryKey"`
	Kind      string `gorm:"size:32;not null;uniqueIndex:idx_resources_key"`
	Name      string `gorm:"size:128;not null;uniqueIndex:idx_resources_key"`
	Version   int    `gorm:"not null;uniqueIndex:idx_resources_key"`
	Payload   []byte
	CreatedAt time.Time
}

// Store implements the feature store capabilities on a SQL database.
type Store struct {
	db *gorm.DB
}

// Open connects with driver "sqlite" or "postgres" and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dsn == "" {
			return nil, errors.New("sqlite database path cannot be empty")
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// In-memory databases are per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&featureRow{}, &resource{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}
	log.Printf("INFO: local feature store ready (%s)", driver)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FeatureGroup returns a handle to a feature group version, registering it
// when it does not exist yet.
func (s *Store) FeatureGroup(ctx context.Context, name string, version int) (*FeatureGroup, error) {
	if err := s.register(ctx, featurestore.KindFeatureGroup, name, version, nil); err != nil {
		return nil, err
	}
	return &FeatureGroup{store: s, name: name, version: version}, nil
}

// CreateFeatureView registers a feature view version.
func (s *Store) CreateFeatureView(ctx context.Context, name string, version int) error {
	return s.register(ctx, featurestore.KindFeatureView, name, version, nil)
}

// RegisterModel stores a model artifact as the next version of name.
func (s *Store) RegisterModel(ctx context.Context, name string, artifact []byte) (int, error) {
	var latest resource
	err := s.db.WithContext(ctx).
		Where("kind = ? AND name = ?", string(featurestore.KindModel), name).
		Order("version DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read model versions of %s: %w", name, err)
	}
	version := latest.Version + 1
	if err := s.register(ctx, featurestore.KindModel, name, version, artifact); err != nil {
		return 0, err
	}
	return version, nil
}

// ModelArtifact returns the artifact of a model version; version 0 means latest.
func (s *Store) ModelArtifact(ctx context.Context, name string, version int) ([]byte, error) {
	q := s.db.WithContext(ctx).Where("kind = ? AND name = ?", string(featurestore.KindModel), name)
	if version > 0 {
		q = q.Where("version = ?", version)
	}
	var r resource
	res := q.Order("version DESC").Limit(1).Find(&r)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, featurestore.NotFound(featurestore.KindModel, name)
	}
	return r.Payload, nil
}

// PutSecret creates or replaces a secret.
func (s *Store) PutSecret(ctx context.Context, name string, value []byte) error {
	r := resource{Kind: string(featurestore.KindSecret), Name: name, Payload: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}, {Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload"}),
	}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("failed to store secret %s: %w", name, err)
	}
	return nil
}

func (s *Store) FeatureGroups(ctx context.Context, name string) ([]featurestore.Resource, error) {
	return s.list(ctx, featurestore.KindFeatureGroup, name)
}

func (s *Store) FeatureViews(ctx context.Context, name string) ([]featurestore.Resource, error) {
	return s.list(ctx, featurestore.KindFeatureView, name)
}

func (s *Store) Models(ctx context.Context, name string) ([]featurestore.Resource, error) {
	return s.list(ctx, featurestore.KindModel, name)
}

// Delete removes a feature group or view version. Group rows go with it.
func (s *Store) Delete(ctx context.Context, r featurestore.Resource) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteResource(tx, r); err != nil {
			return err
		}
		if r.Kind == featurestore.KindFeatureGroup {
			if err := tx.Where("group_name = ? AND version = ?", r.Name, r.Version).Delete(&featureRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete rows of %s: %w", r, err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteModel(ctx context.Context, r featurestore.Resource) error {
	return deleteResource(s.db.WithContext(ctx), r)
}

func (s *Store) DeleteSecret(ctx context.Context, name string) error {
	return deleteResource(s.db.WithContext(ctx), featurestore.Resource{Kind: featurestore.KindSecret, Name: name})
}

func (s *Store) register(ctx context.Context, kind featurestore.Kind, name string, version int, payload []byte) error {
	r := resource{Kind: string(kind), Name: name, Version: version, Payload: payload}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("failed to register %s %s/%d: %w", kind, name, version, err)
	}
	return nil
}

func (s *Store) list(ctx context.Context, kind featurestore.Kind, name string) ([]featurestore.Resource, error) {
	var rows []resource
	err := s.db.WithContext(ctx).
		Where("kind = ? AND name = ?", string(kind), name).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s %s: %w", kind, name, err)
	}
	out := make([]featurestore.Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, featurestore.Resource{Kind: kind, Name: r.Name, Version: r.Version})
	}
	return out, nil
}

func deleteResource(tx *gorm.DB, r featurestore.Resource) error {
	res := tx.Where("kind = ? AND name = ? AND version = ?", string(r.Kind), r.Name, r.Version).Delete(&resource{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.Kind, r, res.Error)
	}
	if res.RowsAffected == 0 {
		return featurestore.NotFound(r.Kind, r.String())
	}
	return nil
}

// FeatureGroup reads and writes the rows of one feature group version.
type FeatureGroup struct {
	store   *Store
	name    string
	version int
}

func (g *FeatureGroup) Name() string { return g.name }

// Read returns all rows ordered by date.
func (g *FeatureGroup) Read(ctx context.Context) ([]featurestore.FeatureRow, error) {
	var rows []featureRow
	err := g.store.db.WithContext(ctx).
		Where("group_name = ? AND version = ?", g.name, g.version).
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read feature group %s/%d: %w", g.name, g.version, err)
	}

	out := make([]featurestore.FeatureRow, 0, len(rows))
	for _, r := range rows {
		date, err := common.ParseDate(r.Day)
		if err != nil {
			return nil, fmt.Errorf("feature group %s/%d: bad date %q: %w", g.name, g.version, r.Day, err)
		}
		values := map[string]float64{}
		if err := json.Unmarshal([]byte(r.Payload), &values); err != nil {
			return nil, fmt.Errorf("feature group %s/%d: bad row for %s: %w", g.name, g.version, r.Day, err)
		}
		out = append(out, featurestore.FeatureRow{Date: date, Values: values})
	}
	return out, nil
}

// Insert upserts rows keyed by calendar date. The write commits before Insert
// returns, which satisfies WaitForJob; without it the commit is still synchronous.
func (g *FeatureGroup) Insert(ctx context.Context, rows []featurestore.FeatureRow, opts featurestore.WriteOptions) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]featureRow, 0, len(rows))
	for _, r := range rows {
		payload, err := json.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("failed to encode row %s: %w", r.Date.Format(common.DateLayout), err)
		}
		records = append(records, featureRow{
			GroupName: g.name,
			Version:   g.version,
			Day:       common.CalendarDate(r.Date).Format(common.DateLayout),
			Payload:   string(payload),
		})
	}

	err := g.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_name"}, {Name: "version"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload"}),
		}).Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert into feature group %s/%d: %w", g.name, g.version, err)
	}
	log.Printf("INFO: inserted %d rows into feature group %s/%d (wait_for_job=%t)", len(records), g.name, g.version, opts.WaitForJob)
	return nil
}
