// AngelaMos | 2026
// service.go

package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/stockease/internal/core"
)

type Service struct {
	repo  Repository
	cache *Cache
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List serves one page of the caller's products, read-through cached per
// (user, page, page_size).
func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListParams,
) (*ProductListResponse, error) {
	params.Normalize()

	if cached, err := s.cache.GetPage(
		ctx,
		userID,
		params.Page,
		params.PageSize,
	); err == nil {
		core.AddSpanEvent(ctx, "product_page_cache_hit")
		return cached, nil
	}

	products, total, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if params.Page > totalPages {
		return nil, core.NotFoundError("page")
	}

	resp := ProductListResponse{
		Count:    total,
		PageSize: params.PageSize,
		Results:  ToProductResponseList(products),
	}
	if params.Page < totalPages {
		resp.Next = pageLink(params.Page+1, params.PageSize)
	}
	if params.Page > 1 {
		resp.Previous = pageLink(params.Page-1, params.PageSize)
	}

	s.cache.SetPage(ctx, userID, params.Page, params.PageSize, resp)

	return &resp, nil
}

// Get serves a single product, read-through cached per (user, product).
// A product owned by someone else is indistinguishable from a missing one.
func (s *Service) Get(
	ctx context.Context,
	userID, productID string,
) (*ProductResponse, error) {
	if cached, err := s.cache.GetProduct(ctx, userID, productID); err == nil {
		core.AddSpanEvent(ctx, "product_cache_hit")
		return cached, nil
	}

	product, err := s.repo.GetForUser(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	s.cache.SetProduct(ctx, userID, resp)

	return &resp, nil
}

func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateProductRequest,
) (*ProductResponse, error) {
	name := CleanName(req.Name)

	if err := s.checkNameAvailable(ctx, userID, name, ""); err != nil {
		return nil, err
	}

	product := &Product{
		ID:       uuid.New().String(),
		UserID:   userID,
		Name:     name,
		Price:    req.Price,
		Quantity: req.Quantity,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, duplicateNameError()
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, userID, product.ID)

	resp := ToProductResponse(product)
	return &resp, nil
}

// Update replaces every mutable field of the product.
func (s *Service) Update(
	ctx context.Context,
	userID, productID string,
	req UpdateProductRequest,
) (*ProductResponse, error) {
	product, err := s.repo.GetForUser(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	name := CleanName(req.Name)
	if err := s.checkNameAvailable(ctx, userID, name, productID); err != nil {
		return nil, err
	}

	product.Name = name
	product.Price = *req.Price
	product.Quantity = *req.Quantity

	return s.persistUpdate(ctx, product)
}

// Patch updates only the fields the request carries.
func (s *Service) Patch(
	ctx context.Context,
	userID, productID string,
	req PatchProductRequest,
) (*ProductResponse, error) {
	product, err := s.repo.GetForUser(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := CleanName(*req.Name)
		if err := s.checkNameAvailable(
			ctx,
			userID,
			name,
			productID,
		); err != nil {
			return nil, err
		}
		product.Name = name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}

	return s.persistUpdate(ctx, product)
}

func (s *Service) Destroy(
	ctx context.Context,
	userID, productID string,
) error {
	if err := s.repo.Delete(ctx, userID, productID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, userID, productID)

	return nil
}

func (s *Service) persistUpdate(
	ctx context.Context,
	product *Product,
) (*ProductResponse, error) {
	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, duplicateNameError()
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, product.UserID, product.ID)

	resp := ToProductResponse(product)
	return &resp, nil
}

// checkNameAvailable enforces per-user name uniqueness on two normalized
// forms: whitespace collapsed, and whitespace removed entirely. The
// database unique index on normalized_name backstops the first form; the
// compact form can only be checked here.
func (s *Service) checkNameAvailable(
	ctx context.Context,
	userID, name, excludeProductID string,
) error {
	names, err := s.repo.NamesForUser(ctx, userID, excludeProductID)
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}

	normalized := NormalizeName(name)
	compact := CompactName(name)

	for _, existing := range names {
		if NormalizeName(existing) == normalized ||
			CompactName(existing) == compact {
			return duplicateNameError()
		}
	}

	return nil
}

func duplicateNameError() error {
	return core.FieldError(
		"name",
		"A product with this name already exists in your inventory.",
	)
}

func pageLink(page, pageSize int) *string {
	link := fmt.Sprintf("/v1/products?page=%d&page_size=%d", page, pageSize)
	return &link
}
