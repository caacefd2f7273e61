package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/common/logger"
	commonmw "marketplace-service/common/middleware"
	"marketplace-service/config"
	"marketplace-service/consumer"
	"marketplace-service/controllers"
	"marketplace-service/database"
	"marketplace-service/kafka"
	awspkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
	"marketplace-service/routes"
	"marketplace-service/sender"
	"marketplace-service/services"
)

const serviceName = "marketplace-service"

// processedSessionTTL bounds the Redis fast path; the database marker is
// authoritative.
const processedSessionTTL = 7 * 24 * time.Hour

// App owns every long-lived resource of the process. Close releases them in
// reverse order of acquisition.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	Events services.EventPublisher
	Router *gin.Engine

	server   *http.Server
	consumer *consumer.NotificationConsumer

	workers     sync.WaitGroup
	stopWorkers context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// NewApp connects every collaborator and builds the router. On error the
// resources acquired so far are released.
func NewApp(ctx context.Context, cfg *config.Config) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	var awsCfg sdkaws.Config
	if cfg.UsesAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		if err != nil {
			return app, fmt.Errorf("load aws config: %w", err)
		}
	}

	if cfg.CloudWatchLogsEnabled {
		sink, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			return app, fmt.Errorf("cloudwatch logs: %w", err)
		}
		app.Logger = logger.InitializeWithWriter(cfg.Env, sink)
	} else {
		app.Logger = logger.Initialize(cfg.Env)
	}
	log := app.Logger

	if app.DB, err = database.Connect(cfg, log); err != nil {
		return app, err
	}
	if app.Redis, err = database.NewRedisClient(ctx, cfg.RedisURL); err != nil {
		return app, err
	}

	var metrics *awspkg.MetricsClient
	if cfg.CloudWatchEnabled {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	switch cfg.EventsTransport {
	case "sns":
		app.Events = services.NewSNSEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.EventsSNSTopicARN)
	case "kafka":
		app.Events = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		app.Events = services.NewNoopEventPublisher()
	}

	// Repositories.
	db := app.DB
	users := repository.NewGormUserRepository(db)
	products := repository.NewGormProductRepository(db)
	stories := repository.NewGormStoryRepository(db)
	coupons := repository.NewGormCouponRepository(db)
	orders := repository.NewGormOrderRepository(db)
	groups := repository.NewGormGroupOrderRepository(db)
	apps := repository.NewGormApplicationRepository(db)
	reports := repository.NewGormReportRepository(db)
	uow := repository.NewGormUnitOfWork(db)
	sessions := repository.NewRedisSessionStore(app.Redis, cfg.SessionTTL)
	carts := repository.NewRedisCartRepository(app.Redis, cfg.CartTTL)
	processed := repository.NewRedisProcessedSessionCache(app.Redis, processedSessionTTL)

	// Notifications: direct delivery, optionally behind an SQS queue.
	var templateSender sender.TemplateSender
	if cfg.EmailAPIKey != "" {
		if templateSender, err = sender.NewHTTPSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailSenderAddress, cfg.EmailSenderName); err != nil {
			return app, err
		}
	} else {
		log.Warn("EMAIL_API_KEY not set, notifications will only be logged")
		templateSender = sender.NewLogSender(log)
	}
	notifications := services.NewNotificationService(templateSender, services.TemplateIDsFromConfig(cfg.Templates), log)
	var notifier services.Notifier = notifications
	if cfg.NotificationQueueURL != "" {
		queue := awspkg.NewSQSQueue(awsCfg, cfg.NotificationQueueURL, log)
		notifier = services.NewQueuedNotifier(queue, notifications, log)
		app.consumer = consumer.NewNotificationConsumer(queue, notifications, log)
	}

	var store awspkg.ObjectStore
	if cfg.S3Bucket != "" {
		store = awspkg.NewS3Store(awsCfg, cfg.S3Bucket, cfg.S3PublicBaseURL)
	}

	// Services.
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	couponSvc := services.NewCouponService(coupons, log)
	authSvc := services.NewAuthService(users, uow, sessions, tokens, notifier, log)
	checkoutSvc := services.NewCheckoutService(products, groups, couponSvc, stripeSvc, metrics, services.CheckoutConfig{
		Currency:         cfg.Currency,
		DeliveryFeeCents: cfg.DeliveryFeeCents,
		FrontendURL:      cfg.FrontendURL,
	}, log)
	fulfillmentSvc := services.NewFulfillmentService(services.FulfillmentDeps{
		UnitOfWork:       uow,
		Users:            users,
		Carts:            carts,
		Cache:            processed,
		Coupons:          couponSvc,
		Notifier:         notifier,
		Events:           app.Events,
		Metrics:          metrics,
		DeliveryFeeCents: cfg.DeliveryFeeCents,
	}, log)

	handlers := routes.Handlers{
		Auth: controllers.NewAuthController(authSvc, controllers.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			TTL:    cfg.SessionTTL,
		}),
		Profile:      controllers.NewProfileController(services.NewProfileService(users, sessions, log)),
		Products:     controllers.NewProductController(services.NewProductService(products, store, cfg.UploadURLExpiry, log)),
		Stories:      controllers.NewStoryController(services.NewStoryService(stories, log)),
		Coupons:      controllers.NewCouponController(couponSvc),
		Applications: controllers.NewApplicationController(services.NewApplicationService(apps, uow, notifier, app.Events, cfg.AllowApplicationReReview, log)),
		Checkout:     controllers.NewCheckoutController(checkoutSvc),
		Webhook:      controllers.NewWebhookController(stripeSvc, fulfillmentSvc, cfg.WebhookMaxBodySize, log),
		Orders:       controllers.NewOrderController(services.NewOrderService(orders, log)),
		GroupOrders:  controllers.NewGroupOrderController(services.NewGroupOrderService(groups, uow, log)),
		Cart:         controllers.NewCartController(services.NewCartService(carts, products, log)),
		Reports:      controllers.NewReportController(services.NewReportService(reports, users, cfg.CommissionPercent, log)),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		commonmw.RequestLogger(log),
		commonmw.Timeout(cfg.RequestTimeout),
		commonmw.SecurityHeaders(),
		commonmw.CORS(cfg.AllowedOrigins),
		commonmw.MetricsMiddleware(metrics, serviceName),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(r, handlers, authSvc, routes.Options{
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
	})
	app.Router = r

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// Run serves HTTP and runs background workers until ctx is cancelled, then
// drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(context.Background())
	a.stopWorkers = cancel
	if a.consumer != nil {
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			a.consumer.Start(workerCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Server starting", zap.String("port", a.Config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancelShutdown()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close stops workers and releases every resource. It is safe to call more
// than once and on a partially built App.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.stopWorkers != nil {
			a.stopWorkers()
			a.workers.Wait()
		}

		var errs []error
		if a.Events != nil {
			errs = append(errs, a.Events.Close())
		}
		if a.Redis != nil {
			errs = append(errs, a.Redis.Close())
		}
		if a.DB != nil {
			errs = append(errs, database.Close(a.DB))
		}
		if a.Logger != nil {
			_ = a.Logger.Sync()
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
