package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type itemRepository struct {
	db DBTX
}

func NewItemRepository(db DBTX) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, owner_id, title, category, price_per_day, deposit, is_pro_item, can_teach, can_deliver, images, description, location, view_count, is_deleted, created_at`

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	query := `INSERT INTO items (owner_id, title, category, price_per_day, deposit, is_pro_item, can_teach, can_deliver, images, description, location)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		it.OwnerID, it.Title, it.Category, it.PricePerDay, it.Deposit, it.IsProItem, it.CanTeach, it.CanDeliver,
		pq.Array(it.Images), it.Description, it.Location,
	).Scan(&it.ID, &it.CreatedAt)
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	it, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrItemNotFound)
	}
	return it, nil
}

func (r *itemRepository) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_deleted = FALSE`
	var args []any
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *itemRepository) UpdateTerms(ctx context.Context, id int64, pricePerDay, deposit int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET price_per_day=$1, deposit=$2 WHERE id=$3`, pricePerDay, deposit, id)
	return expectOne(res, err, domain.ErrItemNotFound)
}

func (r *itemRepository) IncrementViewCount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET view_count = view_count + 1 WHERE id=$1`, id)
	return expectOne(res, err, domain.ErrItemNotFound)
}

func (r *itemRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET is_deleted = TRUE WHERE id=$1`, id)
	return expectOne(res, err, domain.ErrItemNotFound)
}

func scanItem(row rowScanner) (*domain.Item, error) {
	it := &domain.Item{}
	var images pq.StringArray
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Category, &it.PricePerDay, &it.Deposit, &it.IsProItem,
		&it.CanTeach, &it.CanDeliver, &images, &it.Description, &it.Location, &it.ViewCount, &it.IsDeleted, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	it.Images = []string(images)
	return it, nil
}
