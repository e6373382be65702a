package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the pgx-backed Store. Stock moves take row locks on products
// so concurrent confirmations of the same product cannot both pass the
// check and over-deduct.
type Repo struct{ DB *pgxpool.Pool }

const orderCols = `o.id, o.user_id, u.name, u.phone,
       o.guest_name, o.guest_phone, o.guest_address, o.payment_method,
       o.status, o.total, o.notes, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o LEFT JOIN users u ON o.user_id = u.id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var userName *string
	err := row.Scan(&o.ID, &o.UserID, &userName, &o.UserPhone,
		&o.GuestName, &o.GuestPhone, &o.GuestAddress, &o.PaymentMethod,
		&o.Status, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	switch {
	case userName != nil:
		o.UserName = *userName
	case o.GuestName != nil:
		o.UserName = *o.GuestName
		o.UserPhone = o.GuestPhone
	}
	return &o, nil
}

// Insert writes the order header and every line item in one transaction;
// a failing item insert rolls the whole order back.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, guest_name, guest_phone, guest_address, payment_method, status, total, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.GuestName, o.GuestPhone, o.GuestAddress, o.PaymentMethod, o.Status, o.Total, o.Notes).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, price, discount)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			o.ID, it.ProductID, it.Quantity, it.Price, it.Discount).Scan(&it.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+orderFrom+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := `SELECT ` + orderCols + orderFrom + ` WHERE 1=1`
	var args []any
	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += fmt.Sprintf(` AND o.user_id = $%d`, len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(` AND o.status = $%d`, len(args))
	}
	q += ` ORDER BY o.created_at DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.order_id, oi.id, oi.product_id, p.name, oi.quantity, oi.price, oi.discount
		FROM order_items oi JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(orderIDs))
	for rows.Next() {
		var orderID int64
		var it Item
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.Price, &it.Discount); err != nil {
			return nil, err
		}
		it.Subtotal = it.LineSubtotal()
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

// Transition locks the order row, derives the stock effect from the
// status read under that lock, applies it and writes the new status, all
// in one transaction. Concurrent transitions on the same order serialize
// on the row lock, so a second confirm sees `confirmed` and deducts
// nothing. StockDeduct locks every line's product row, verifies all
// lines before mutating any, and aborts with the offending line's
// shortage if any product falls short. Returns the prior status.
func (r *Repo) Transition(ctx context.Context, id int64, to Status) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	from, err := lockStatus(ctx, tx, id)
	if err != nil {
		return "", err
	}

	switch EffectFor(from, to) {
	case StockDeduct:
		if err := deductStock(ctx, tx, id); err != nil {
			return "", err
		}
	case StockRestore:
		if err := restoreStock(ctx, tx, id); err != nil {
			return "", err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, to); err != nil {
		return "", err
	}
	return from, tx.Commit(ctx)
}

func lockStatus(ctx context.Context, tx pgx.Tx, orderID int64) (Status, error) {
	var s Status
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	return s, err
}

// Delete removes the order and its items; a confirmed order gets its
// stock put back first, same as cancellation. The status driving the
// restore is read under the same row lock as the delete.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	from, err := lockStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if from == StatusConfirmed {
		if err := restoreStock(ctx, tx, id); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return tx.Commit(ctx)
}

type stockLine struct {
	productID int64
	name      string
	qty       decimal.Decimal
	stock     decimal.Decimal
}

// deductStock locks each product row, checks every line, then decrements.
// Validation of all lines happens before any UPDATE so a shortfall on
// the last line leaves the first line's stock untouched.
func deductStock(ctx context.Context, tx pgx.Tx, orderID int64) error {
	rows, err := tx.Query(ctx, `
		SELECT oi.product_id, p.name, oi.quantity, p.stock
		FROM order_items oi JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		FOR UPDATE OF p`, orderID)
	if err != nil {
		return err
	}
	var lines []stockLine
	for rows.Next() {
		var l stockLine
		if err := rows.Scan(&l.productID, &l.name, &l.qty, &l.stock); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if l.stock.LessThan(l.qty) {
			return errInsufficientStock(StockShortage{
				ProductID: l.productID, ProductName: l.name, Available: l.stock, Requested: l.qty,
			})
		}
	}
	for _, l := range lines {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			l.productID, l.qty); err != nil {
			return err
		}
	}
	return nil
}

func restoreStock(ctx context.Context, tx pgx.Tx, orderID int64) error {
	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return err
	}
	type rec struct {
		pid int64
		qty decimal.Decimal
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			x.pid, x.qty); err != nil {
			return err
		}
	}
	return nil
}
