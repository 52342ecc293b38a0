package api

import (
	"context"
	"fmt"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type ProductAPI struct {
	c *Client
}

func NewProductAPI(c *Client) *ProductAPI { return &ProductAPI{c: c} }

func (a *ProductAPI) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := a.c.get(ctx, "/product", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (a *ProductAPI) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := a.c.get(ctx, fmt.Sprintf("/product/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
