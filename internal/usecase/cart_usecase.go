package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// 1明細あたりの数量の上限
const maxLineQuantity = 9999

// CartUsecase は /cart の業務ロジックです。
// Cart と CartProduct のRepositoryを分けて受け取ります。
type CartUsecase struct {
	carts    repo.CartRepository
	lines    repo.CartProductRepository
	products repo.ProductRepository
	clock    Clock
}

func NewCartUsecase(
	carts repo.CartRepository,
	lines repo.CartProductRepository,
	products repo.ProductRepository,
	clock Clock,
) *CartUsecase {
	return &CartUsecase{
		carts:    carts,
		lines:    lines,
		products: products,
		clock:    clock,
	}
}

type CartLineView struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     *string         `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint            `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at"`
}

type CartView struct {
	Lines []CartLineView  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type AddLineInput struct {
	ProductID int64
	Quantity  int64
}

// ComputeCartView は明細ごとの小計と合計を計算する。
// 価格は現在の商品価格。空なら合計0。
func ComputeCartView(lines []model.CartProduct) CartView {
	view := CartView{
		Lines: make([]CartLineView, 0, len(lines)),
		Total: decimal.Zero,
	}

	for _, l := range lines {
		sub := l.Subtotal()
		view.Lines = append(view.Lines, CartLineView{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Image:     l.Product.Image,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			Subtotal:  sub,
			AddedAt:   l.AddedAt,
		})
		view.Total = view.Total.Add(sub)
	}
	return view
}

// GetOrCreateCart はユーザーのカートを返す（無ければ作る）。
func (u *CartUsecase) GetOrCreateCart(ctx context.Context, userID int64) (model.Cart, error) {
	if userID <= 0 {
		return model.Cart{}, ErrUnauthorized
	}
	return u.carts.GetOrCreateByUserID(ctx, userID)
}

// GetCart はカートの中身と合計を返す。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartView, error) {
	cart, err := u.GetOrCreateCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return u.view(ctx, cart.ID)
}

// AddLine は商品をカートに追加する。同じ商品が既にあれば ErrAlreadyInCart。
func (u *CartUsecase) AddLine(ctx context.Context, userID int64, in AddLineInput) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}
	if in.Quantity < 1 || in.Quantity > maxLineQuantity {
		return CartView{}, ErrInvalidQuantity
	}
	if in.ProductID <= 0 {
		return CartView{}, ErrNotFound
	}

	// 商品チェック
	if _, err := u.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, ErrNotFound
		}
		return CartView{}, fmt.Errorf("find product: %w", err)
	}

	cart, err := u.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, fmt.Errorf("get cart: %w", err)
	}

	// 重複は一意制約で判定する（事前チェックはしない）
	_, err = u.lines.Create(ctx, model.CartProduct{
		CartID:    cart.ID,
		ProductID: in.ProductID,
		Quantity:  uint(in.Quantity),
		AddedAt:   u.clock.Now(),
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return CartView{}, ErrAlreadyInCart
	}
	if err != nil {
		return CartView{}, fmt.Errorf("add cart line: %w", err)
	}

	return u.view(ctx, cart.ID)
}

// RemoveLine は自分のカートの明細を削除する。
func (u *CartUsecase) RemoveLine(ctx context.Context, userID int64, lineID int64) (CartView, error) {
	cart, err := u.ownCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	if err := u.lines.Delete(ctx, cart.ID, lineID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, ErrNotFound
		}
		return CartView{}, fmt.Errorf("remove cart line: %w", err)
	}

	return u.view(ctx, cart.ID)
}

// UpdateLineQuantity は数量を変更する。0なら明細を削除。
func (u *CartUsecase) UpdateLineQuantity(ctx context.Context, userID int64, lineID int64, qty int64) (CartView, error) {
	if qty < 0 || qty > maxLineQuantity {
		return CartView{}, ErrInvalidQuantity
	}
	if qty == 0 {
		return u.RemoveLine(ctx, userID, lineID)
	}

	cart, err := u.ownCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	if err := u.lines.UpdateQuantity(ctx, cart.ID, lineID, uint(qty)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, ErrNotFound
		}
		return CartView{}, fmt.Errorf("update cart line: %w", err)
	}

	return u.view(ctx, cart.ID)
}

// カートが無ければ明細も無いので ErrNotFound
func (u *CartUsecase) ownCart(ctx context.Context, userID int64) (model.Cart, error) {
	if userID <= 0 {
		return model.Cart{}, ErrUnauthorized
	}
	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, ErrNotFound
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("find cart: %w", err)
	}
	return cart, nil
}

func (u *CartUsecase) view(ctx context.Context, cartID int64) (CartView, error) {
	lines, err := u.lines.ListByCartID(ctx, cartID)
	if err != nil {
		return CartView{}, fmt.Errorf("list cart lines: %w", err)
	}
	return ComputeCartView(lines), nil
}
