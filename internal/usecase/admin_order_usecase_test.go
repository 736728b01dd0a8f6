package usecase_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdminTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdminTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdminTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdminTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	auditLogs  repo.AuditLogRepository
}

func (r *AdminTxReposMock) Orders() repo.OrderRepository             { return r.orders }
func (r *AdminTxReposMock) OrderItems() repo.OrderItemRepository     { return r.orderItems }
func (r *AdminTxReposMock) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }
func (r *AdminTxReposMock) Carts() repo.CartRepository               { panic("not used") }
func (r *AdminTxReposMock) CartProducts() repo.CartProductRepository { panic("not used") }
func (r *AdminTxReposMock) Products() repo.ProductRepository         { panic("not used") }
func (r *AdminTxReposMock) Categories() repo.CategoryRepository      { panic("not used") }

// =====================
// Repository mocks
// =====================

type AdminOrderRepoMock struct{ mock.Mock }

func (m *AdminOrderRepoMock) FindByID(ctx context.Context, id int64) (model.Order, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) FindByIDForUpdate(ctx context.Context, id int64) (model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdminOrderItemRepoMock struct{ mock.Mock }

func (m *AdminOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdminAuditRepoMock struct{ mock.Mock }

func (m *AdminAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdminAuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

type adminMocks struct {
	tx     *AdminTxManagerMock
	orders *AdminOrderRepoMock
	items  *AdminOrderItemRepoMock
	audit  *AdminAuditRepoMock
}

func newAdminMocks() adminMocks {
	m := adminMocks{
		tx:     new(AdminTxManagerMock),
		orders: new(AdminOrderRepoMock),
		items:  new(AdminOrderItemRepoMock),
		audit:  new(AdminAuditRepoMock),
	}
	m.tx.Repos = &AdminTxReposMock{orders: m.orders, orderItems: m.items, auditLogs: m.audit}
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	return m
}

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidParams(t *testing.T) {
	cases := []struct {
		name string
		f    repo.AdminOrderListFilter
	}{
		{"invalid page", repo.AdminOrderListFilter{Page: 0, Limit: 20}},
		{"invalid limit", repo.AdminOrderListFilter{Page: 1, Limit: 0}},
		{"limit too big", repo.AdminOrderListFilter{Page: 1, Limit: 101}},
		{"invalid status", repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "LOST"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newAdminMocks()
			uc := usecase.NewAdminOrderUsecase(m.tx, fixedClock{now: baseTime})

			out, err := uc.List(context.Background(), tc.f)
			assert.ErrorIs(t, err, usecase.ErrInvalidInput)
			assert.Empty(t, out.Items)
			m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}

func TestAdminOrderUsecase_List_Success_CallsItemsPerOrder(t *testing.T) {
	m := newAdminMocks()
	f := repo.AdminOrderListFilter{Page: 1, Limit: 20}

	orders := []model.Order{
		{ID: 10, Status: model.OrderStatusPending},
		{ID: 11, Status: model.OrderStatusPaid},
	}
	m.orders.On("ListAdmin", mock.Anything, f).Return(orders, int64(2), nil)
	m.items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(11)).Return([]model.OrderItem{}, nil)

	uc := usecase.NewAdminOrderUsecase(m.tx, fixedClock{now: baseTime})

	out, err := uc.List(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, int64(2), out.Total)

	m.tx.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.items.AssertExpectations(t)
}

// =====================
// UpdateStatus tests
// =====================

func TestAdminOrderUsecase_UpdateStatus_Transitions(t *testing.T) {
	cases := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		ok   bool
	}{
		{model.OrderStatusPending, model.OrderStatusPaid, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusPaid, model.OrderStatusShipped, true},
		{model.OrderStatusPaid, model.OrderStatusCancelled, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusPending, model.OrderStatusShipped, false},
		{model.OrderStatusShipped, model.OrderStatusCancelled, false},
		{model.OrderStatusDelivered, model.OrderStatusPending, false},
		{model.OrderStatusCancelled, model.OrderStatusPaid, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			m := newAdminMocks()
			m.orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{ID: 7, Status: tc.from}, nil)
			if tc.ok {
				m.orders.On("UpdateStatus", mock.Anything, int64(7), tc.to).Return(nil)
				m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
					return l.Action == model.AuditActionUpdateOrderStatus &&
						l.ActorUserID == 99 &&
						l.ResourceType == model.AuditResourceOrder &&
						l.ResourceID == 7 &&
						l.CreatedAt.Equal(baseTime)
				})).Return(nil)
			}

			uc := usecase.NewAdminOrderUsecase(m.tx, fixedClock{now: baseTime})
			err := uc.UpdateStatus(context.Background(), 99, 7, usecase.AdminUpdateOrderStatusInput{Status: string(tc.to)})

			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, usecase.ErrInvalidStatusTransition)
				m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			}
			m.orders.AssertExpectations(t)
			m.audit.AssertExpectations(t)
		})
	}
}

// 小文字でも受ける。同じステータスなら何もしない
func TestAdminOrderUsecase_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	m := newAdminMocks()
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{ID: 7, Status: model.OrderStatusPaid}, nil)

	uc := usecase.NewAdminOrderUsecase(m.tx, fixedClock{now: baseTime})
	err := uc.UpdateStatus(context.Background(), 99, 7, usecase.AdminUpdateOrderStatusInput{Status: " paid "})
	assert.NoError(t, err)

	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	m.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_Errors(t *testing.T) {
	ctx := context.Background()

	m := newAdminMocks()
	uc := usecase.NewAdminOrderUsecase(m.tx, fixedClock{now: baseTime})
	assert.ErrorIs(t, uc.UpdateStatus(ctx, 0, 7, usecase.AdminUpdateOrderStatusInput{Status: "PAID"}), usecase.ErrUnauthorized)
	assert.ErrorIs(t, uc.UpdateStatus(ctx, 99, 0, usecase.AdminUpdateOrderStatusInput{Status: "PAID"}), usecase.ErrInvalidInput)
	assert.ErrorIs(t, uc.UpdateStatus(ctx, 99, 7, usecase.AdminUpdateOrderStatusInput{Status: "LOST"}), usecase.ErrInvalidInput)

	m.orders.On("FindByIDForUpdate", mock.Anything, int64(8)).Return(model.Order{}, repo.ErrNotFound)
	assert.ErrorIs(t, uc.UpdateStatus(ctx, 99, 8, usecase.AdminUpdateOrderStatusInput{Status: "PAID"}), usecase.ErrNotFound)

	// 監査ログが書けなければ失敗（Tx全体がロールバックされる）
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(9)).Return(model.Order{ID: 9, Status: model.OrderStatusPending}, nil)
	m.orders.On("UpdateStatus", mock.Anything, int64(9), model.OrderStatusPaid).Return(nil)
	m.audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	err := uc.UpdateStatus(ctx, 99, 9, usecase.AdminUpdateOrderStatusInput{Status: "PAID"})
	assert.ErrorContains(t, err, "write audit log")
}

func TestParseDateTimeRFC3339(t *testing.T) {
	got, err := usecase.ParseDateTimeRFC3339("")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = usecase.ParseDateTimeRFC3339("2025-03-04T10:20:30Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(baseTime))

	_, err = usecase.ParseDateTimeRFC3339("yesterday")
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

// 管理画面の一覧は実DBでも確認する
func TestAdminOrderUsecase_WithDB(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")
	addToCart(t, f, u.ID, seedProduct(t, f.db, "Mug", "19.99", 1), 2)
	out, err := f.order.PlaceOrder(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, f.admin.UpdateStatus(ctx, 1, out.ID, usecase.AdminUpdateOrderStatusInput{Status: "PAID"}))

	page, err := f.admin.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10, Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, out.OrderID, page.Items[0].OrderID)
	require.Len(t, page.Items[0].Items, 1)
	assert.Equal(t, "39.98", page.Items[0].Total.StringFixed(2))
}
