package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/BoweryJG/mUiLinguistics/internal/api/v1/handler"
	"github.com/BoweryJG/mUiLinguistics/internal/config"
	"github.com/BoweryJG/mUiLinguistics/internal/middleware"
	"github.com/BoweryJG/mUiLinguistics/internal/pubsub"
	"github.com/BoweryJG/mUiLinguistics/internal/repository"
	"github.com/BoweryJG/mUiLinguistics/internal/service"
	"github.com/BoweryJG/mUiLinguistics/internal/tier"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the record store, Stripe, storage and Pub/Sub clients into the
// service graph and returns the root HTTP handler. All client handles are
// constructed here and passed down explicitly; nothing is a package-level
// singleton.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	ctx := context.Background()

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client for audio storage
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for the analysis pipeline
	publisher, err := pubsub.NewPublisher(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	limitsRepo := repository.NewLimitsRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	customerRepo := repository.NewCustomerRepo(pool)

	resolver := tier.NewResolver(logger)
	usageSvc := service.NewUsageService(limitsRepo, usageRepo, logger)
	userSvc := service.NewUserService(userRepo)
	analysisSvc := service.NewAnalysisService(usageSvc, s3Client, cfg.S3Bucket, publisher, cfg.AnalysisTopic, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, customerRepo, limitsRepo, resolver, logger)

	userHandler := handler.NewUserHandler(userSvc, usageSvc, validate, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	analysisHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			// Redirect legacy /api/* paths to /v1/*
			if strings.HasPrefix(r.URL.Path, "/api/") {
				rest := strings.TrimPrefix(r.URL.Path, "/api/")
				http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
				return
			}
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Audio Analysis API is running"}`))
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-User-ID"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux), logger), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
