package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
)

// 前台 / 机器人展示的最近订单数
const recentOrdersLimit = 5

// OrderService 订单服务
type OrderService struct {
	uow      *repository.UnitOfWork
	notifier OrderNotifier
}

// NewOrderService 创建订单服务
func NewOrderService(uow *repository.UnitOfWork, notifier OrderNotifier) *OrderService {
	return &OrderService{uow: uow, notifier: notifier}
}

// ==================== 订单查询 ====================

// List 后台订单列表
func (s *OrderService) List(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListOrdersResponse, error) {
	if req.Status != "" && !model.IsValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	filter := repository.OrderFilter{
		Status:   req.Status,
		Keyword:  strings.TrimSpace(req.Keyword),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	// 日期过滤，结束日期包含当天
	if req.StartDate != "" {
		t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date 格式应为 2006-01-02", ErrInvalidInput)
		}
		filter.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date 格式应为 2006-01-02", ErrInvalidInput)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &t
	}

	return s.list(ctx, filter)
}

// Get 订单详情（含订单项与流转记录）
func (s *OrderService) Get(ctx context.Context, id int64) (*dto.OrderDetailResponse, error) {
	order, err := s.uow.Orders.GetByIDWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return toOrderDetail(order, true), nil
}

// Stats 订单统计
func (s *OrderService) Stats(ctx context.Context) (*repository.OrderStats, error) {
	return s.uow.Orders.GetStats(ctx)
}

// ==================== 状态流转 ====================

// UpdateStatus 按流转表修改状态；WHERE status = from 防止并发覆盖
func (s *OrderService) UpdateStatus(ctx context.Context, id, actorID int64, req *dto.UpdateOrderStatusRequest) (*dto.OrderDetailResponse, error) {
	to := strings.TrimSpace(req.Status)
	if !model.IsValidOrderStatus(to) {
		return nil, ErrInvalidStatus
	}

	var order *model.Order
	var from string
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		order, err = tx.Orders.GetByIDWithRelations(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		from = order.Status
		if !model.CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}

		ok, err := tx.Orders.UpdateStatusFrom(ctx, id, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStatusConflict
		}

		// 取消 / 退货回补库存
		if model.RestocksOnTransition(to) {
			for _, item := range order.Items {
				if item.Reserved <= 0 {
					continue
				}
				if err := tx.Products.IncrementStock(ctx, item.VariantID, item.Reserved); err != nil {
					return err
				}
			}
		}

		return tx.Orders.CreateEvent(ctx, &model.OrderEvent{
			OrderID:     id,
			ActorUserID: actorID,
			FromStatus:  from,
			ToStatus:    to,
			Note:        strings.TrimSpace(req.Note),
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = to
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(order, from)
	}

	return s.Get(ctx, id)
}

// UpdateNote 修改后台备注
func (s *OrderService) UpdateNote(ctx context.Context, id int64, req *dto.UpdateOrderNoteRequest) error {
	order, err := s.uow.Orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	return s.uow.Orders.UpdateFields(ctx, id, map[string]interface{}{
		"admin_note": req.AdminNote,
	})
}

// ==================== 顾客视角 ====================

// ListForUser 我的订单
func (s *OrderService) ListForUser(ctx context.Context, userID int64, page, pageSize int) (*dto.ListOrdersResponse, error) {
	return s.list(ctx, repository.OrderFilter{UserID: userID, Page: page, PageSize: pageSize})
}

// GetForUser 他人订单按不存在处理
func (s *OrderService) GetForUser(ctx context.Context, userID, id int64) (*dto.OrderDetailResponse, error) {
	order, err := s.uow.Orders.GetByIDWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID == nil || *order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return toOrderDetail(order, false), nil
}

// RecentForUser 最近订单（机器人 /orders）
func (s *OrderService) RecentForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, _, err := s.uow.Orders.List(ctx, repository.OrderFilter{
		UserID:   userID,
		Page:     1,
		PageSize: recentOrdersLimit,
	})
	return orders, err
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) (*dto.ListOrdersResponse, error) {
	orders, total, err := s.uow.Orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	list := make([]dto.OrderListItem, len(orders))
	for i := range orders {
		list[i] = toOrderListItem(&orders[i])
	}

	return &dto.ListOrdersResponse{
		Total: total,
		List:  list,
	}, nil
}

// ==================== DTO 转换 ====================

func toOrderListItem(o *model.Order) dto.OrderListItem {
	return dto.OrderListItem{
		ID:            o.ID,
		Number:        o.Number,
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Email:         o.Email,
		ItemCount:     o.ItemCount(),
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		StockShortage: o.StockShortage,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
	}
}

// toOrderDetail admin 为 false 时隐藏后台字段
func toOrderDetail(o *model.Order, admin bool) *dto.OrderDetailResponse {
	resp := &dto.OrderDetailResponse{
		OrderListItem:   toOrderListItem(o),
		DeliveryAddress: o.DeliveryAddress,
		Comment:         o.Comment,
		Items:           make([]dto.OrderItemInfo, len(o.Items)),
	}
	for i := range o.Items {
		it := &o.Items[i]
		resp.Items[i] = dto.OrderItemInfo{
			ID:          it.ID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Total:       it.Total(),
		}
	}

	if !admin {
		resp.StockShortage = false
		resp.AllowedNext = []string{}
		return resp
	}

	resp.AdminNote = o.AdminNote
	resp.ProviderPaymentID = o.ProviderPaymentID
	resp.AllowedNext = append([]string{}, model.AllowedTransitions[o.Status]...)
	for _, e := range o.Events {
		resp.Events = append(resp.Events, dto.OrderEventInfo{
			FromStatus:  e.FromStatus,
			ToStatus:    e.ToStatus,
			ActorUserID: e.ActorUserID,
			Note:        e.Note,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp
}

// ==================== 错误定义 ====================

var (
	ErrOrderNotFound     = errors.New("订单不存在")
	ErrInvalidStatus     = errors.New("无效的订单状态")
	ErrInvalidTransition = errors.New("不允许的状态流转")
	ErrStatusConflict    = errors.New("订单状态已被修改，请刷新后重试")
)
