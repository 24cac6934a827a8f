// AngelaMos | 2026
// dto.go

package inventory

import "time"

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// maxPage keeps (Page-1)*PageSize within int range on every
	// platform; anything near it is far past real data and resolves
	// as an out-of-range page.
	maxPage = 10_000_000
)

type CreateProductRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Price    int64  `json:"price"    validate:"gte=0"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// UpdateProductRequest replaces the whole row (PUT semantics); every
// field is required.
type UpdateProductRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Price    *int64 `json:"price"    validate:"required,gte=0"`
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
}

// PatchProductRequest updates only the fields present (PATCH semantics).
type PatchProductRequest struct {
	Name     *string `json:"name"     validate:"omitempty,max=255"`
	Price    *int64  `json:"price"    validate:"omitempty,gte=0"`
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
}

type ProductResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductListResponse is the pagination envelope: total count, relative
// next/previous links (null at the edges), the effective page size, and
// the page of results.
type ProductListResponse struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	PageSize int               `json:"page_size"`
	Results  []ProductResponse `json:"results"`
}

type ListParams struct {
	Page     int
	PageSize int
}

// Normalize clamps paging inputs to sane bounds rather than erroring.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToProductResponse(product *Product) ProductResponse {
	return ProductResponse{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  product.Quantity,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}

func ToProductResponseList(products []Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, ToProductResponse(&products[i]))
	}
	return responses
}
