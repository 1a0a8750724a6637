package service

import (
	"context"
	"fmt"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

// OrderService reads the order history of an account. Orders are written
// only by CheckoutService.
type OrderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// List returns every completed order of the account, newest first.
func (s *OrderService) List(ctx context.Context, accountID string) ([]entity.Order, error) {
	return s.Recent(ctx, accountID, 0)
}

// Recent returns at most limit orders; limit <= 0 returns all of them.
func (s *OrderService) Recent(ctx context.Context, accountID string, limit int) ([]entity.Order, error) {
	orders, err := s.orderRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, accountID, orderID string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, accountID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}
