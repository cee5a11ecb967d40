package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideahub/internal/metrics"
	"ideahub/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

type gormStore struct {
	db      *gorm.DB
	backend string
}

// NewGormStore returns a Store over a relational database opened with GORM
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, backend: "sql:" + db.Dialector.Name()}
}

func (s *gormStore) Backend() string { return s.backend }

func (s *gormStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

func (s *gormStore) Find(ctx context.Context, name ModelName, filter Filter, order *OrderBy, dest any) error {
	defer metrics.ObserveStore(s.backend, string(name), "find", time.Now())

	sc, err := lookup(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := sc.checkOrder(order); err != nil {
		return err
	}
	if err := checkList(name, dest); err != nil {
		return err
	}

	query := GetDB(ctx, s.db).Table(sc.table)
	if len(filter) > 0 {
		query = query.Where(map[string]interface{}(filter))
	}
	if order != nil {
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: order.Field},
			Desc:   order.Direction == Desc,
		})
	}
	if err := query.Find(dest).Error; err != nil {
		return s.translate(fmt.Errorf("find %s: %w", name, err))
	}
	return nil
}

func (s *gormStore) FindOne(ctx context.Context, name ModelName, filter Filter, dest any) error {
	defer metrics.ObserveStore(s.backend, string(name), "find_one", time.Now())

	sc, err := lookup(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := checkOne(name, dest); err != nil {
		return err
	}

	query := GetDB(ctx, s.db).Table(sc.table)
	if len(filter) > 0 {
		query = query.Where(map[string]interface{}(filter))
	}
	// Take avoids an implicit primary key ORDER BY so both backends agree on "first match"
	if err := query.Take(dest).Error; err != nil {
		return s.translate(fmt.Errorf("find one %s: %w", name, err))
	}
	return nil
}

func (s *gormStore) Count(ctx context.Context, name ModelName, filter Filter) (int64, error) {
	defer metrics.ObserveStore(s.backend, string(name), "count", time.Now())

	sc, err := lookup(name)
	if err != nil {
		return 0, err
	}
	if err := sc.checkFilter(filter); err != nil {
		return 0, err
	}

	var total int64
	query := GetDB(ctx, s.db).Table(sc.table)
	if len(filter) > 0 {
		query = query.Where(map[string]interface{}(filter))
	}
	if err := query.Count(&total).Error; err != nil {
		return 0, s.translate(fmt.Errorf("count %s: %w", name, err))
	}
	return total, nil
}

func (s *gormStore) Create(ctx context.Context, name ModelName, record any) error {
	defer metrics.ObserveStore(s.backend, string(name), "create", time.Now())

	if _, err := lookup(name); err != nil {
		return err
	}
	if err := checkOne(name, record); err != nil {
		return err
	}
	if st, ok := record.(model.Stampable); ok {
		st.Stamp(time.Now().UTC())
	}
	if err := GetDB(ctx, s.db).Create(record).Error; err != nil {
		return s.translate(fmt.Errorf("create %s: %w", name, err))
	}
	return nil
}

func (s *gormStore) Update(ctx context.Context, name ModelName, filter Filter, changes map[string]any, dest any) error {
	defer metrics.ObserveStore(s.backend, string(name), "update", time.Now())

	sc, err := lookup(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := sc.checkChanges(changes); err != nil {
		return err
	}
	if err := checkOne(name, dest); err != nil {
		return err
	}

	return s.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.FindOne(txCtx, name, filter, dest); err != nil {
			return err
		}
		id := entityID(dest)
		db := GetDB(txCtx, s.db)
		// The filter is repeated on the write so a concurrent change to a
		// filtered field turns this update into a miss.
		res := db.Model(dest).Where(map[string]interface{}(filter)).Updates(changes)
		if res.Error != nil {
			return s.translate(fmt.Errorf("update %s: %w", name, res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update %s: %w", name, ErrNotFound)
		}
		if err := db.Table(sc.table).Where("id = ?", id).Take(dest).Error; err != nil {
			return s.translate(fmt.Errorf("reload %s: %w", name, err))
		}
		return nil
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the facade sentinels
func (s *gormStore) translate(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
