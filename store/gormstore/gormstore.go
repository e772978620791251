// Package gormstore implements store.Store on a relational database through gorm.
// String and bool attributes live as JSON in store_items; numeric attributes
// live in store_counters so they can be incremented in place.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"Scrumble/store"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type itemRow struct {
	PK        string `gorm:"primaryKey;size:255"`
	SK        string `gorm:"primaryKey;size:512"`
	Data      string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (itemRow) TableName() string { return "store_items" }

type counterRow struct {
	PK     string `gorm:"primaryKey;size:255"`
	SK     string `gorm:"primaryKey;size:512"`
	Field  string `gorm:"primaryKey;size:128"`
	Amount int64  `gorm:"not null"`
}

func (counterRow) TableName() string { return "store_counters" }

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type Store struct {
	db *gorm.DB
}

// New migrates the two backing tables and returns the store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&itemRow{}, &counterRow{}); err != nil {
		return nil, fmt.Errorf("migrate store tables: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenPostgres connects with a DSN or URL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

// OpenSQLite opens path (":memory:" for an ephemeral database) on a single
// connection, so every caller sees the same database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (s *Store) Get(ctx context.Context, pk, sk string) (store.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Where("pk = ? AND sk = ?", pk, sk).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Item{}, store.ErrNotFound
	}
	if err != nil {
		return store.Item{}, err
	}

	var counters []counterRow
	if err := s.db.WithContext(ctx).Where("pk = ? AND sk = ?", pk, sk).Find(&counters).Error; err != nil {
		return store.Item{}, err
	}
	return decode(row, counters)
}

func (s *Store) Put(ctx context.Context, item store.Item) error {
	data, counters, err := encode(item)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := itemRow{PK: item.PK, SK: item.SK, Data: data, UpdatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("pk = ? AND sk = ?", item.PK, item.SK).Delete(&counterRow{}).Error; err != nil {
			return err
		}
		if len(counters) == 0 {
			return nil
		}
		return tx.Create(&counters).Error
	})
}

func (s *Store) AtomicAdd(ctx context.Context, pk, sk, field string, delta int64) (int64, error) {
	var amount int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := itemRow{PK: pk, SK: sk, Data: "{}", UpdatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		counter := counterRow{PK: pk, SK: sk, Field: field, Amount: delta}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pk"}, {Name: "sk"}, {Name: "field"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount": gorm.Expr("store_counters.amount + ?", delta),
			}),
		}).Create(&counter).Error; err != nil {
			return err
		}

		var current counterRow
		if err := tx.Where("pk = ? AND sk = ? AND field = ?", pk, sk, field).Take(&current).Error; err != nil {
			return err
		}
		amount = current.Amount
		return nil
	})
	return amount, err
}

func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	rowsQuery := s.db.WithContext(ctx).Where("pk = ?", in.PK)
	countersQuery := s.db.WithContext(ctx).Where("pk = ?", in.PK)
	if in.SKPrefix != "" {
		// LIKE folds ASCII case on SQLite, so the substr comparison keeps
		// the match exact on every driver and the SQL limit safe to apply.
		pattern := likeEscaper.Replace(in.SKPrefix) + "%"
		width := utf8.RuneCountInString(in.SKPrefix)
		rowsQuery = rowsQuery.Where("sk LIKE ? ESCAPE '!' AND substr(sk, 1, ?) = ?", pattern, width, in.SKPrefix)
		countersQuery = countersQuery.Where("sk LIKE ? ESCAPE '!' AND substr(sk, 1, ?) = ?", pattern, width, in.SKPrefix)
	}
	if in.NewestFirst {
		rowsQuery = rowsQuery.Order("sk DESC")
	} else {
		rowsQuery = rowsQuery.Order("sk ASC")
	}
	if in.Filter == nil && in.Limit > 0 {
		rowsQuery = rowsQuery.Limit(in.Limit)
	}

	var rows []itemRow
	if err := rowsQuery.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []store.Item{}, nil
	}

	var counters []counterRow
	if err := countersQuery.Find(&counters).Error; err != nil {
		return nil, err
	}
	bySK := make(map[string][]counterRow, len(counters))
	for _, c := range counters {
		bySK[c.SK] = append(bySK[c.SK], c)
	}

	out := make([]store.Item, 0, len(rows))
	for _, row := range rows {
		it, err := decode(row, bySK[row.SK])
		if err != nil {
			return nil, err
		}
		if !in.Match(it) {
			continue
		}
		out = append(out, it)
		if in.Limit > 0 && len(out) >= in.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pk = ? AND sk = ?", pk, sk).Delete(&counterRow{}).Error; err != nil {
			return err
		}
		return tx.Where("pk = ? AND sk = ?", pk, sk).Delete(&itemRow{}).Error
	})
}

func encode(item store.Item) (string, []counterRow, error) {
	plain := map[string]any{}
	var counters []counterRow
	for name, v := range item.Attrs {
		switch n := v.(type) {
		case int64:
			counters = append(counters, counterRow{PK: item.PK, SK: item.SK, Field: name, Amount: n})
		case int:
			counters = append(counters, counterRow{PK: item.PK, SK: item.SK, Field: name, Amount: int64(n)})
		case string, bool:
			plain[name] = n
		default:
			return "", nil, fmt.Errorf("attribute %q: unsupported type %T", name, v)
		}
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return "", nil, err
	}
	return string(data), counters, nil
}

func decode(row itemRow, counters []counterRow) (store.Item, error) {
	item := store.NewItem(row.PK, row.SK)
	if row.Data != "" {
		var plain map[string]any
		if err := json.Unmarshal([]byte(row.Data), &plain); err != nil {
			return store.Item{}, fmt.Errorf("decode %s/%s: %w", row.PK, row.SK, err)
		}
		for name, v := range plain {
			item = item.Set(name, v)
		}
	}
	for _, c := range counters {
		item = item.Set(c.Field, c.Amount)
	}
	return item, nil
}
