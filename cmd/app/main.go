package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"salon/cmd/fx/account_fx"
	"salon/cmd/fx/balance_fx"
	"salon/cmd/fx/config_fx"
	"salon/cmd/fx/controllers_fx"
	"salon/cmd/fx/db_fx"
	"salon/cmd/fx/giftcard_fx"
	"salon/cmd/fx/mail_fx"
	"salon/cmd/fx/memcache_fx"
	"salon/cmd/fx/payment_service_fx"
	"salon/cmd/fx/scheduler_fx"
	"salon/internal/api/controllers"
	"salon/internal/config"
	"salon/internal/metrics"
	dbm "salon/internal/models/db_models"
	"salon/pkg/middleware"
	mem "salon/pkg/memcache"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		mail_fx.Module,
		payment_service_fx.Module,
		account_fx.Module,
		balance_fx.Module,
		giftcard_fx.Module,
		controllers_fx.Module,
		scheduler_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

type RouterParams struct {
	fx.In

	Config *config.Config
	Log    *zap.Logger

	AccountController  *controllers.AccountController
	BalanceController  *controllers.BalanceController
	GiftCardController *controllers.GiftCardController
	PaymentController  *controllers.PaymentController

	RedeemLimiters *mem.Limiters `name:"redeem"`
	VerifyLimiters *mem.Limiters `name:"verify"`
}

func ProvideRouter(p RouterParams) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(p.Config.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Log))
	r.Use(middleware.Recovery(p.Log))

	RegisterRoutes(r, p)

	return r, nil
}

func RegisterRoutes(r *gin.Engine, p RouterParams) {
	secret := []byte(p.Config.JWTSecret)
	auth := middleware.JWTAuthMiddleware(secret)
	admin := middleware.RoleMiddleware(dbm.RoleAdmin)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	accountGroup := r.Group("/accounts")
	accountGroup.POST("/register", p.AccountController.Register)
	accountGroup.POST("/login", p.AccountController.Login)

	balanceGroup := r.Group("/balance", auth)
	balanceGroup.GET("", p.BalanceController.GetBalance)
	balanceGroup.GET("/history", p.BalanceController.GetHistory)
	balanceGroup.POST("/top-up", p.BalanceController.TopUp)

	giftCardGroup := r.Group("/gift-cards")
	giftCardGroup.POST("/purchase", p.GiftCardController.Purchase)
	giftCardGroup.POST("/redeem", auth, middleware.RateLimitMiddleware("redeem", p.RedeemLimiters), p.GiftCardController.Redeem)

	paymentGroup := r.Group("/payments")
	paymentGroup.POST("/stripe/webhook", p.PaymentController.HandleWebhook)

	adminGroup := r.Group("/admin", auth, admin)
	adminGroup.GET("/balance/:userId", p.BalanceController.AdminGetBalance)
	adminGroup.POST("/balance/:userId/adjust", p.BalanceController.AdminAdjust)
	adminGroup.POST("/gift-cards/verify", middleware.RateLimitMiddleware("verify", p.VerifyLimiters), p.GiftCardController.AdminVerify)
	adminGroup.POST("/gift-cards/expire", p.GiftCardController.AdminExpire)
	adminGroup.GET("/gift-cards/:id", p.GiftCardController.AdminGet)
	adminGroup.POST("/gift-cards/:id/mark-used", p.GiftCardController.AdminMarkUsed)
}
