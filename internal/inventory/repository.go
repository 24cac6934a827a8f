// AngelaMos | 2026
// repository.go

package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/stockease/internal/core"
)

// Repository scopes every query by owner. Another user's product behaves
// exactly like a nonexistent one.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	GetForUser(ctx context.Context, userID, productID string) (*Product, error)
	ListForUser(
		ctx context.Context,
		userID string,
		params ListParams,
	) ([]Product, int, error)
	NamesForUser(
		ctx context.Context,
		userID string,
		excludeProductID string,
	) ([]string, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, userID, productID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (id, user_id, name, normalized_name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, product, query,
		product.ID,
		product.UserID,
		product.Name,
		NormalizeName(product.Name),
		product.Price,
		product.Quantity,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *repository) GetForUser(
	ctx context.Context,
	userID, productID string,
) (*Product, error) {
	query := `
		SELECT id, user_id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE id = $1 AND user_id = $2`

	var product Product
	err := r.db.GetContext(ctx, &product, query, productID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &product, nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Product, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM products WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT id, user_id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var products []Product
	err := r.db.SelectContext(
		ctx,
		&products,
		query,
		userID,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

func (r *repository) NamesForUser(
	ctx context.Context,
	userID string,
	excludeProductID string,
) ([]string, error) {
	var names []string
	var err error

	// The exclusion id must not share a placeholder with a text
	// comparison: the parameter would be typed as text and uuid <> text
	// fails at parse time.
	if excludeProductID == "" {
		query := `
			SELECT name FROM products
			WHERE user_id = $1`
		err = r.db.SelectContext(ctx, &names, query, userID)
	} else {
		query := `
			SELECT name FROM products
			WHERE user_id = $1 AND id <> $2`
		err = r.db.SelectContext(ctx, &names, query, userID, excludeProductID)
	}
	if err != nil {
		return nil, fmt.Errorf("list product names: %w", err)
	}

	return names, nil
}

func (r *repository) Update(ctx context.Context, product *Product) error {
	query := `
		UPDATE products
		SET name = $3, normalized_name = $4, price = $5, quantity = $6,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &product.UpdatedAt, query,
		product.ID,
		product.UserID,
		product.Name,
		NormalizeName(product.Name),
		product.Price,
		product.Quantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

func (r *repository) Delete(
	ctx context.Context,
	userID, productID string,
) error {
	query := `DELETE FROM products WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, productID, userID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete product: %w", core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
