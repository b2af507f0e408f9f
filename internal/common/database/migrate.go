package database

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// ReservationExclusionConstraint 同一房屋未取消预订的时间区间不得重叠
const ReservationExclusionConstraint = "reservations_exclude_overlapping"

// sqlStateExclusionViolation PostgreSQL exclusion_violation 错误码
const sqlStateExclusionViolation = "23P01"

// Migrate 同步表结构；PostgreSQL 下额外创建预订区间排他约束
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.House{},
		&models.Event{},
		&models.Client{},
		&models.PromoCode{},
		&models.Reservation{},
		&models.Bill{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if !IsPostgres(db) {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
			return fmt.Errorf("create btree_gist: %w", err)
		}

		var exists bool
		if err := tx.Raw("SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)", ReservationExclusionConstraint).
			Scan(&exists).Error; err != nil {
			return err
		}
		if exists {
			return nil
		}

		stmt := fmt.Sprintf(`ALTER TABLE reservations ADD CONSTRAINT %s
			EXCLUDE USING gist (house_id WITH =, tstzrange(check_in_at, check_out_at, '[)') WITH &&)
			WHERE (NOT cancelled)`, ReservationExclusionConstraint)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create exclusion constraint: %w", err)
		}
		return nil
	})
}

// IsPostgres 判断连接是否为 PostgreSQL
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// advisory lock 的命名空间，避免房屋与优惠码的 id 相互冲突
const (
	lockSpaceHouse int32 = iota + 1
	lockSpacePromoCode
)

// LockHouse 在事务内按房屋加锁，串行化同一房屋的预订写入。
// 仅 PostgreSQL 生效（事务级 advisory lock），其他方言依赖调用方的重复检查
func LockHouse(tx *gorm.DB, houseID int64) error {
	return advisoryLock(tx, lockSpaceHouse, houseID)
}

// LockPromoCode 在事务内按优惠码加锁，串行化同一优惠码的使用次数校验。
// 需在 LockHouse 之后调用，保持加锁顺序一致
func LockPromoCode(tx *gorm.DB, promoCodeID int64) error {
	return advisoryLock(tx, lockSpacePromoCode, promoCodeID)
}

func advisoryLock(tx *gorm.DB, space int32, id int64) error {
	if !IsPostgres(tx) {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?::int, hashtext(?::text))", space, strconv.FormatInt(id, 10)).Error
}

// IsExclusionViolation 判断错误是否由排他约束触发
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateExclusionViolation
	}
	return false
}
