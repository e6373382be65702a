package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// ---- categories ----

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, description, image_url FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Category returns nil when the category does not exist.
func (r *Repo) Category(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `SELECT id, name, description, image_url FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO categories(name, description, image_url)
		VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Description, c.ImageURL).Scan(&c.ID)
}

func (r *Repo) UpdateCategory(ctx context.Context, id int64, p CategoryPatch) error {
	b := newPatchBuilder()
	b.set("name", p.Name)
	b.set("description", p.Description)
	b.set("image_url", p.ImageURL)
	if b.empty() {
		return nil
	}
	ct, err := r.DB.Exec(ctx, b.sql("categories"), b.args(id)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteCategory detaches products first so they survive as uncategorized.
func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE products SET category_id = NULL WHERE category_id=$1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

// ---- products ----

const productCols = `p.id, p.name, p.description, p.price, p.unit, p.category_id, c.name,
       p.image_url, p.image_url_2, p.stock, p.min_order, p.is_active, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.CategoryID, &p.CategoryName,
		&p.ImageURL, &p.ImageURL2, &p.Stock, &p.MinOrder, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := `SELECT ` + productCols + `
	      FROM products p LEFT JOIN categories c ON p.category_id = c.id WHERE 1=1`
	var args []any
	if f.ActiveOnly {
		q += ` AND p.is_active`
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		q += fmt.Sprintf(` AND p.category_id = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		q += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.description ILIKE $%d)`, len(args), len(args))
	}
	q += ` ORDER BY p.name`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Product returns nil when the product does not exist.
func (r *Repo) Product(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+`
		FROM products p LEFT JOIN categories c ON p.category_id = c.id WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, price, unit, category_id, image_url, image_url_2, stock, min_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, is_active, created_at, updated_at`,
		p.Name, p.Description, p.Price, p.Unit, p.CategoryID, p.ImageURL, p.ImageURL2, p.Stock, p.MinOrder).
		Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, p ProductPatch) error {
	b := newPatchBuilder()
	b.set("name", p.Name)
	b.set("description", p.Description)
	b.set("price", p.Price)
	b.set("unit", p.Unit)
	b.set("category_id", p.CategoryID)
	b.set("image_url", p.ImageURL)
	b.set("image_url_2", p.ImageURL2)
	b.set("stock", p.Stock)
	b.set("min_order", p.MinOrder)
	b.set("is_active", p.IsActive)
	if b.empty() {
		return nil
	}
	b.raw("updated_at = now()")
	ct, err := r.DB.Exec(ctx, b.sql("products"), b.args(id)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeactivateProduct is the soft delete used by DELETE /products/{id}.
func (r *Repo) DeactivateProduct(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET is_active = false, updated_at = now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- promotions ----

const promoCols = `pr.id, pr.name, pr.description, pr.discount_percent,
       pr.product_id, p.name, pr.category_id, c.name,
       pr.start_date, pr.end_date, pr.is_active, pr.created_at`

const promoFrom = ` FROM promotions pr
       LEFT JOIN products p ON pr.product_id = p.id
       LEFT JOIN categories c ON pr.category_id = c.id`

func scanPromotion(row pgx.Row) (*Promotion, error) {
	var pr Promotion
	err := row.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.DiscountPercent,
		&pr.ProductID, &pr.ProductName, &pr.CategoryID, &pr.CategoryName,
		&pr.StartDate, &pr.EndDate, &pr.IsActive, &pr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *Repo) listPromotions(ctx context.Context, q string, args ...any) ([]Promotion, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		pr, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pr)
	}
	return out, rows.Err()
}

func (r *Repo) ListPromotions(ctx context.Context, activeOnly bool, asOf time.Time) ([]Promotion, error) {
	q := `SELECT ` + promoCols + promoFrom + ` WHERE 1=1`
	var args []any
	if activeOnly {
		args = append(args, asOf)
		q += ` AND pr.is_active AND $1 BETWEEN pr.start_date AND pr.end_date`
	}
	q += ` ORDER BY pr.created_at DESC`
	return r.listPromotions(ctx, q, args...)
}

// Promotion returns nil when the promotion does not exist.
func (r *Repo) Promotion(ctx context.Context, id int64) (*Promotion, error) {
	pr, err := scanPromotion(r.DB.QueryRow(ctx, `SELECT `+promoCols+promoFrom+` WHERE pr.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return pr, err
}

func (r *Repo) CreatePromotion(ctx context.Context, pr *Promotion) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO promotions(name, description, discount_percent, product_id, category_id, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, is_active, created_at`,
		pr.Name, pr.Description, pr.DiscountPercent, pr.ProductID, pr.CategoryID, pr.StartDate, pr.EndDate).
		Scan(&pr.ID, &pr.IsActive, &pr.CreatedAt)
}

func (r *Repo) UpdatePromotion(ctx context.Context, id int64, p PromotionPatch) error {
	b := newPatchBuilder()
	b.set("name", p.Name)
	b.set("description", p.Description)
	b.set("discount_percent", p.DiscountPercent)
	b.set("product_id", p.ProductID)
	b.set("category_id", p.CategoryID)
	b.set("start_date", p.StartDate)
	b.set("end_date", p.EndDate)
	b.set("is_active", p.IsActive)
	if b.empty() {
		return nil
	}
	ct, err := r.DB.Exec(ctx, b.sql("promotions"), b.args(id)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repo) DeletePromotion(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM promotions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Matching returns promotions applicable to one product at asOf,
// pre-filtered to the active window. Consumed by the pricing engine.
func (r *Repo) Matching(ctx context.Context, productID int64, categoryID *int64, asOf time.Time) ([]Promotion, error) {
	return r.listPromotions(ctx, `SELECT `+promoCols+promoFrom+`
		WHERE (pr.product_id = $1 OR (pr.category_id IS NOT NULL AND pr.category_id = $2))
		  AND pr.is_active AND $3 BETWEEN pr.start_date AND pr.end_date`,
		productID, categoryID, asOf)
}

// ActiveAsOf returns every promotion valid at asOf; used to price whole listings.
func (r *Repo) ActiveAsOf(ctx context.Context, asOf time.Time) ([]Promotion, error) {
	return r.listPromotions(ctx, `SELECT `+promoCols+promoFrom+`
		WHERE pr.is_active AND $1 BETWEEN pr.start_date AND pr.end_date`, asOf)
}

// ---- patch builder ----

// patchBuilder collects SET clauses for partial updates; only fields
// explicitly provided end up in the statement.
type patchBuilder struct {
	sets []string
	vals []any
}

func newPatchBuilder() *patchBuilder { return &patchBuilder{} }

func (b *patchBuilder) set(col string, v any) {
	if v == nil {
		return
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return
	}
	b.vals = append(b.vals, v)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", col, len(b.vals)))
}

func (b *patchBuilder) raw(clause string) { b.sets = append(b.sets, clause) }

func (b *patchBuilder) empty() bool { return len(b.sets) == 0 }

func (b *patchBuilder) sql(table string) string {
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(b.sets, ", "), len(b.vals)+1)
}

func (b *patchBuilder) args(id int64) []any { return append(b.vals, id) }
