// AngelaMos | 2026
// service_test.go

package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/stockease/internal/core"
)

type fakeRepo struct {
	products  []*Product
	listCalls int
	getCalls  int
}

func (f *fakeRepo) Create(_ context.Context, product *Product) error {
	for _, p := range f.products {
		if p.UserID == product.UserID &&
			NormalizeName(p.Name) == NormalizeName(product.Name) {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	stored := *product
	f.products = append(f.products, &stored)
	return nil
}

func (f *fakeRepo) GetForUser(
	_ context.Context,
	userID, productID string,
) (*Product, error) {
	f.getCalls++
	for _, p := range f.products {
		if p.ID == productID && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
}

func (f *fakeRepo) ListForUser(
	_ context.Context,
	userID string,
	params ListParams,
) ([]Product, int, error) {
	f.listCalls++

	var owned []Product
	// Newest first, mirroring the ORDER BY created_at DESC.
	for i := len(f.products) - 1; i >= 0; i-- {
		if f.products[i].UserID == userID {
			owned = append(owned, *f.products[i])
		}
	}

	total := len(owned)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return owned[start:end], total, nil
}

func (f *fakeRepo) NamesForUser(
	_ context.Context,
	userID string,
	excludeProductID string,
) ([]string, error) {
	var names []string
	for _, p := range f.products {
		if p.UserID == userID && p.ID != excludeProductID {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (f *fakeRepo) Update(_ context.Context, product *Product) error {
	for _, p := range f.products {
		if p.ID == product.ID && p.UserID == product.UserID {
			p.Name = product.Name
			p.Price = product.Price
			p.Quantity = product.Quantity
			p.UpdatedAt = time.Now()
			product.UpdatedAt = p.UpdatedAt
			return nil
		}
	}
	return fmt.Errorf("update product: %w", core.ErrNotFound)
}

func (f *fakeRepo) Delete(
	_ context.Context,
	userID, productID string,
) error {
	for i, p := range f.products {
		if p.ID == productID && p.UserID == userID {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete product: %w", core.ErrNotFound)
}

func newTestService() (*Service, *fakeRepo, *core.MemoryKV) {
	repo := &fakeRepo{}
	kv := core.NewMemoryKV()
	svc := NewService(repo, NewCache(kv, slog.Default()))
	return svc, repo, kv
}

func createProduct(
	t *testing.T,
	svc *Service,
	userID, name string,
	price int64,
	quantity int,
) *ProductResponse {
	t.Helper()

	resp, err := svc.Create(context.Background(), userID, CreateProductRequest{
		Name:     name,
		Price:    price,
		Quantity: quantity,
	})
	require.NoError(t, err)
	return resp
}

func TestGetReadThrough(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	userID := uuid.New().String()

	created := createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)

	repo.getCalls = 0

	first, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)

	// Second read is served from cache.
	second, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)
	assert.Equal(t, first.Name, second.Name)
}

func TestGetCrossOwnerBehavesLikeMissing(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	owner := uuid.New().String()
	intruder := uuid.New().String()

	created := createProduct(t, svc, owner, "Gaming Laptop", 149999, 3)

	_, err := svc.Get(ctx, intruder, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Even after the owner warmed the detail cache, another user's read
	// must not see the cached entry.
	_, err = svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, intruder, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListCachesPerPageAndSize(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	userID := uuid.New().String()

	for i := range 15 {
		createProduct(t, svc, userID, fmt.Sprintf("Item %d", i), 100, 1)
	}

	repo.listCalls = 0

	page1, err := svc.List(ctx, userID, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 15, page1.Count)
	assert.Len(t, page1.Results, 10)
	assert.Equal(t, 1, repo.listCalls)

	// Same page and size hits the cache.
	_, err = svc.List(ctx, userID, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	// A different (page, page_size) combination is a distinct cache entry.
	page2, err := svc.List(ctx, userID, ListParams{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page2.Results, 5)
	assert.Equal(t, 2, repo.listCalls)
}

func TestListPaginationLinks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	for i := range 25 {
		createProduct(t, svc, userID, fmt.Sprintf("Item %d", i), 100, 1)
	}

	first, err := svc.List(ctx, userID, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.NotNil(t, first.Next)
	assert.Equal(t, "/v1/products?page=2&page_size=10", *first.Next)
	assert.Nil(t, first.Previous)

	middle, err := svc.List(ctx, userID, ListParams{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.NotNil(t, middle.Next)
	require.NotNil(t, middle.Previous)

	last, err := svc.List(ctx, userID, ListParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Nil(t, last.Next)
	require.NotNil(t, last.Previous)
	assert.Equal(t, "/v1/products?page=2&page_size=10", *last.Previous)
}

func TestListPageOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	createProduct(t, svc, userID, "Only Item", 100, 1)

	_, err := svc.List(ctx, userID, ListParams{Page: 5, PageSize: 10})
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Page 1 of an empty inventory is valid.
	empty, err := svc.List(ctx, uuid.New().String(), ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
}

func TestListParamsClamped(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	createProduct(t, svc, userID, "Item", 100, 1)

	resp, err := svc.List(ctx, userID, ListParams{Page: -3, PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, resp.PageSize)

	resp, err = svc.List(ctx, userID, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, resp.PageSize)
}

func TestListAbsurdPageStaysOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	createProduct(t, svc, userID, "Only Item", 100, 1)

	// A huge page value must clamp so the offset never overflows into a
	// negative number; it then resolves as a plain out-of-range page.
	params := ListParams{Page: math.MaxInt, PageSize: maxPageSize}
	params.Normalize()
	assert.GreaterOrEqual(t, params.Offset(), 0)

	_, err := svc.List(ctx, userID, ListParams{Page: math.MaxInt, PageSize: 10})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateInvalidatesCachedPages(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	userID := uuid.New().String()

	createProduct(t, svc, userID, "First", 100, 1)

	// Warm two differently-shaped pages.
	_, err := svc.List(ctx, userID, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	_, err = svc.List(ctx, userID, ListParams{Page: 1, PageSize: 5})
	require.NoError(t, err)

	createProduct(t, svc, userID, "Second", 200, 2)

	repo.listCalls = 0

	page10, err := svc.List(ctx, userID, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page10.Count)

	page5, err := svc.List(ctx, userID, ListParams{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, page5.Count)

	// Both reads went back to the repository.
	assert.Equal(t, 2, repo.listCalls)
}

func TestUpdateInvalidatesDetailCache(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	created := createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)

	_, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)

	price := int64(129999)
	quantity := 2
	_, err = svc.Update(ctx, userID, created.ID, UpdateProductRequest{
		Name:     "Gaming Laptop",
		Price:    &price,
		Quantity: &quantity,
	})
	require.NoError(t, err)

	fresh, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(129999), fresh.Price)
	assert.Equal(t, 2, fresh.Quantity)
}

func TestCreateRejectsNormalizedDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)

	cases := []string{
		"gaming laptop",
		"  Gaming   Laptop  ",
		"GAMING LAPTOP",
		"gaminglaptop",
	}
	for _, name := range cases {
		_, err := svc.Create(ctx, userID, CreateProductRequest{
			Name: name, Price: 1, Quantity: 1,
		})
		require.Error(t, err, "name %q should collide", name)

		appErr, ok := core.AsAppError(err)
		require.True(t, ok)
		assert.Contains(t, appErr.Fields, "name")
	}

	// Another user can use the same name.
	_, err := svc.Create(ctx, uuid.New().String(), CreateProductRequest{
		Name: "Gaming Laptop", Price: 1, Quantity: 1,
	})
	assert.NoError(t, err)
}

func TestUpdateKeepingOwnNameAllowed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	created := createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)
	createProduct(t, svc, userID, "Mouse", 2999, 10)

	price := int64(139999)
	quantity := 4

	// Renaming a product to its own name is not a collision.
	_, err := svc.Update(ctx, userID, created.ID, UpdateProductRequest{
		Name:     "Gaming   Laptop",
		Price:    &price,
		Quantity: &quantity,
	})
	assert.NoError(t, err)

	// Renaming onto a sibling is.
	_, err = svc.Update(ctx, userID, created.ID, UpdateProductRequest{
		Name:     "mouse",
		Price:    &price,
		Quantity: &quantity,
	})
	assert.Error(t, err)
}

func TestPatchPartialUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	userID := uuid.New().String()

	created := createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)

	quantity := 7
	patched, err := svc.Patch(ctx, userID, created.ID, PatchProductRequest{
		Quantity: &quantity,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gaming Laptop", patched.Name)
	assert.Equal(t, int64(149999), patched.Price)
	assert.Equal(t, 7, patched.Quantity)
}

func TestDestroyRemovesProductAndCache(t *testing.T) {
	ctx := context.Background()
	svc, _, kv := newTestService()
	userID := uuid.New().String()

	created := createProduct(t, svc, userID, "Gaming Laptop", 149999, 3)

	_, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, userID, created.ID))

	_, err = svc.Get(ctx, userID, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.NotContains(
		t,
		kv.Keys(),
		fmt.Sprintf("user:%s:product:%s", userID, created.ID),
	)

	assert.ErrorIs(t, svc.Destroy(ctx, userID, created.ID), core.ErrNotFound)
}

func TestCreateStoresCleanedName(t *testing.T) {
	svc, _, _ := newTestService()

	created := createProduct(
		t,
		svc,
		uuid.New().String(),
		"  Gaming   Laptop ",
		149999,
		3,
	)
	assert.Equal(t, "Gaming Laptop", created.Name)
}

func TestNameNormalization(t *testing.T) {
	assert.Equal(t, "Gaming Laptop", CleanName("  Gaming   Laptop "))
	assert.Equal(t, "gaming laptop", NormalizeName("  Gaming   Laptop "))
	assert.Equal(t, "gaminglaptop", CompactName("  Gaming   Laptop "))
	assert.Equal(t, CompactName("play station"), CompactName("playstation"))
	assert.NotEqual(
		t,
		NormalizeName("play station"),
		NormalizeName("playstation"),
	)
}
