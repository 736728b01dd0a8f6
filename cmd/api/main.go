package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/logger"
	"storefront/internal/infra/notifier"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/token"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env は無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg, zl)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := usecase.SystemClock{}

	// 注文メール。SES未設定ならログだけ
	var orderNotifier usecase.OrderNotifier = notifier.NewLogNotifier(zl)
	if cfg.SESRegion != "" {
		client, err := notifier.NewSESClient(ctx, cfg)
		if err != nil {
			return err
		}
		orderNotifier = notifier.NewSESNotifier(client, userRepo, cfg.SESSender, zl)
	}

	//JWT
	jwtManager := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	//認証まわり
	authValidator := validator.NewAuthValidator()
	idGen := auth.UUIDGenerator{}
	authClock := auth.SystemClock{}
	refreshTTL := auth.RefreshTTL{Persistent: cfg.RefreshTokenTTL, Session: cfg.SessionTTL}

	registerUC := auth.NewRegisterUserUsecase(userRepo, authValidator, auth.NewBcryptPasswordHasher(cfg.BcryptCost), authClock)
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, authValidator, auth.NewBcryptPasswordVerifier(), jwtManager, idGen, authClock, refreshTTL)
	sessionUC := auth.NewSessionUsecase(userRepo, rtRepo, authValidator, jwtManager, idGen, authClock, refreshTTL)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, clock)
	orderUC := usecase.NewOrderUsecase(txm, usecase.NewTimestampOrderIDGenerator(), clock, orderNotifier, zl)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, clock)
	productUC := usecase.NewProductUsecase(productRepo, txm, clock)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, txm, clock)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler生成
	h := server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC, sessionUC, cfg.CookieSecure, zl),
		Product:      handler.NewProductHandler(productUC, categoryUC, zl),
		Cart:         handler.NewCartHandler(cartUC, zl),
		Order:        handler.NewOrderHandler(orderUC, zl),
		AdminProduct: handler.NewAdminProductHandler(productUC, categoryUC, auditUC, zl),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, zl),
		AdminUser:    handler.NewAdminUserHandler(sessionUC, zl),
	}

	e := server.New(h, jwtManager, userRepo, zl)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	return server.Start(ctx, e, addr, zl)
}
