package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ateliera/studio-booking/internal/model"
)

// querier abstracts *sql.DB and *sql.Tx so lookup logic can run both as
// a plain read (pre-validation from the handler) and inside the booking
// transaction (the TOCTOU re-check).  Mutating methods exist only in Tx
// form: codes are consumed exclusively inside the booking transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CodeRepo provides access to prepaid session codes and discount
// coupons.  Lookups never mutate; consumption and usage counting are
// conditional single-statement updates so a code can be spent at most
// once under concurrent requests.
type CodeRepo struct {
	db *sql.DB
}

// NewCodeRepo returns a new CodeRepo bound to the given database.
func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{db: db} }

const sessionCodeColumns = `id, code, package_id, is_used, used_in_booking_id, expires_at, created_at`

func scanSessionCode(row *sql.Row) (*model.SessionCode, error) {
	var (
		sc     model.SessionCode
		usedIn sql.NullInt64
	)
	err := row.Scan(&sc.ID, &sc.Code, &sc.PackageID, &sc.IsUsed, &usedIn, &sc.ExpiresAt, &sc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if usedIn.Valid {
		id := uint64(usedIn.Int64)
		sc.UsedInBookingID = &id
	}
	return &sc, nil
}

func sessionCodeByCode(ctx context.Context, q querier, code string) (*model.SessionCode, error) {
	return scanSessionCode(q.QueryRowContext(ctx,
		`SELECT `+sessionCodeColumns+` FROM session_codes WHERE code = ?`, code))
}

// SessionCodeByCode looks up a session code by its normalized string.
// A miss returns (nil, nil); the validator falls through to coupons.
func (r *CodeRepo) SessionCodeByCode(ctx context.Context, code string) (*model.SessionCode, error) {
	return sessionCodeByCode(ctx, r.db, code)
}

// SessionCodeByCodeTx is SessionCodeByCode inside a transaction, used by
// the booking transactor to re-validate just before consumption.
func (r *CodeRepo) SessionCodeByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.SessionCode, error) {
	return sessionCodeByCode(ctx, tx, code)
}

func packageAllowsService(ctx context.Context, q querier, packageID, serviceID uint64) (bool, error) {
	// An empty allow-list means the package is unrestricted.
	var listed, matched int
	const countQ = `SELECT COUNT(*), COALESCE(SUM(service_id = ?), 0) FROM package_services WHERE package_id = ?`
	if err := q.QueryRowContext(ctx, countQ, serviceID, packageID).Scan(&listed, &matched); err != nil {
		return false, err
	}
	return listed == 0 || matched > 0, nil
}

// PackageAllowsService reports whether a package's applicable-service
// list covers the target service.  Packages without a list cover every
// service.
func (r *CodeRepo) PackageAllowsService(ctx context.Context, packageID, serviceID uint64) (bool, error) {
	return packageAllowsService(ctx, r.db, packageID, serviceID)
}

// PackageAllowsServiceTx is PackageAllowsService inside a transaction.
func (r *CodeRepo) PackageAllowsServiceTx(ctx context.Context, tx *sql.Tx, packageID, serviceID uint64) (bool, error) {
	return packageAllowsService(ctx, tx, packageID, serviceID)
}

const couponColumns = `id, code, discount_type, discount_value, valid_from, valid_until,
	               max_uses, current_uses, min_amount_cents, is_active, created_at, updated_at`

func couponByCode(ctx context.Context, q querier, code string) (*model.DiscountCoupon, error) {
	row := q.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM discount_coupons WHERE code = ?`, code)
	var (
		c          model.DiscountCoupon
		validUntil sql.NullTime
		maxUses    sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.ValidFrom, &validUntil,
		&maxUses, &c.CurrentUses, &c.MinAmountCents, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if validUntil.Valid {
		t := validUntil.Time
		c.ValidUntil = &t
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	return &c, nil
}

// CouponByCode looks up a coupon by its normalized code.  A miss returns
// (nil, nil).
func (r *CodeRepo) CouponByCode(ctx context.Context, code string) (*model.DiscountCoupon, error) {
	return couponByCode(ctx, r.db, code)
}

// CouponByCodeTx is CouponByCode inside a transaction.
func (r *CodeRepo) CouponByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.DiscountCoupon, error) {
	return couponByCode(ctx, tx, code)
}

func couponPackageList(ctx context.Context, q querier, couponID uint64) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, `SELECT package_id FROM coupon_packages WHERE coupon_id = ?`, couponID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CouponPackageList returns the coupon's package allow-list.  An empty
// list means the coupon applies to plain service purchases; a non-empty
// list restricts it to package purchases of the listed packages.
func (r *CodeRepo) CouponPackageList(ctx context.Context, couponID uint64) ([]uint64, error) {
	return couponPackageList(ctx, r.db, couponID)
}

// CouponPackageListTx is CouponPackageList inside a transaction.
func (r *CodeRepo) CouponPackageListTx(ctx context.Context, tx *sql.Tx, couponID uint64) ([]uint64, error) {
	return couponPackageList(ctx, tx, couponID)
}

// ConsumeSessionCodeTx marks a session code used and links it to the
// booking that spent it.  The WHERE clause keeps the operation
// single-use under concurrency: if another transaction consumed the
// code first, zero rows match and ErrCodeNoLongerValid is returned so
// the whole booking rolls back.
func (r *CodeRepo) ConsumeSessionCodeTx(ctx context.Context, tx *sql.Tx, codeID, bookingID uint64) error {
	const q = `UPDATE session_codes
	           SET is_used = 1, used_in_booking_id = ?
	           WHERE id = ? AND is_used = 0 AND expires_at > UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, bookingID, codeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeNoLongerValid
	}
	return nil
}

// ReleaseSessionCodeTx un-consumes a session code after its booking was
// cancelled, making it redeemable again.
func (r *CodeRepo) ReleaseSessionCodeTx(ctx context.Context, tx *sql.Tx, codeID uint64) error {
	const q = `UPDATE session_codes SET is_used = 0, used_in_booking_id = NULL WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, codeID)
	return err
}

// IncrementCouponUsageTx counts one committed redemption, conditionally
// on the coupon still being active and under its cap.  Zero matched
// rows means the coupon was exhausted or deactivated since validation.
func (r *CodeRepo) IncrementCouponUsageTx(ctx context.Context, tx *sql.Tx, couponID uint64) error {
	const q = `UPDATE discount_coupons
	           SET current_uses = current_uses + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND is_active = 1 AND (max_uses IS NULL OR current_uses < max_uses)`
	res, err := tx.ExecContext(ctx, q, couponID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeNoLongerValid
	}
	return nil
}

// DecrementCouponUsageTx is the compensating action when a booking that
// carried the coupon is cancelled or its payment fails.
func (r *CodeRepo) DecrementCouponUsageTx(ctx context.Context, tx *sql.Tx, couponID uint64) error {
	const q = `UPDATE discount_coupons
	           SET current_uses = current_uses - 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND current_uses > 0`
	_, err := tx.ExecContext(ctx, q, couponID)
	return err
}
