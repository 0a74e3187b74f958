package main

import (
	"time"

	"app/internal/billing"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"
	auth "app/internal/usecase/auth_usecase"
	"app/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	// .envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Options{
		Service: "marketplace-api",
		Env:     cfg.GoEnv,
		Level:   cfg.LogLevel,
	})

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Store{},
		&model.Listing{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payout{},
		&model.Subscription{},
		&model.WebhookEvent{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	storeRepo := infraRepo.NewStoreGormRepository(gormDB)
	listingRepo := infraRepo.NewListingGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	subRepo := infraRepo.NewSubscriptionGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//refresh TTL
	refreshTTL := 14 * 24 * time.Hour

	//課金プロバイダ
	billingClient := billing.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, clock)
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, verifier, issuer, idGen, clock, refreshTTL)
	storeUC := usecase.NewStoreUsecase(storeRepo)
	listingUC := usecase.NewListingUsecase(listingRepo, storeRepo, subRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, listingRepo)
	checkoutUC := usecase.NewCheckoutUsecase(
		cartRepo, cartItemRepo, listingRepo, storeRepo, subRepo,
		billingClient, cfg.StripeSellerPriceID,
		cfg.FEURL+"/checkout/success", cfg.FEURL+"/checkout/cancel",
		log,
	)
	subUC := usecase.NewSubscriptionUsecase(txManager, log)
	webhookUC := usecase.NewWebhookUsecase(txManager, subUC, clock, log)
	payoutUC := usecase.NewPayoutUsecase(txManager, idGen, clock, log)

	//Handler生成
	handlers := server.Handlers{
		Auth:        handler.NewAuthHandler(registerUC, loginUC, refreshTTL),
		Store:       handler.NewStoreHandler(storeUC),
		Listing:     handler.NewListingHandler(listingUC),
		Cart:        handler.NewCartHandler(cartUC),
		Checkout:    handler.NewCheckoutHandler(checkoutUC, subUC, storeUC),
		Payout:      handler.NewPayoutHandler(payoutUC, storeUC),
		AdminPayout: handler.NewAdminPayoutHandler(payoutUC, webhookUC),
		Webhook:     handler.NewWebhookHandler(billingClient, webhookUC, log),
	}

	//Server起動
	log.Info("starting api server", "port", cfg.Port, "env", cfg.GoEnv)
	if err := server.Start(cfg, handlers); err != nil {
		panic(err)
	}
}
