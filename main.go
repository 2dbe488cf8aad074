package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"store-finder/cache"
	"store-finder/config"
	"store-finder/handlers"
	"store-finder/middleware"
	"store-finder/repositories"
	"store-finder/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	cfg.ConfigureLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		logrus.WithError(err).Fatal("failed to ping MongoDB")
	}
	db := client.Database(cfg.MongoDatabase)

	storeRepo := repositories.NewStoreRepository(db.Collection(repositories.StoresCollection), repositories.ReviewsCollection)
	userRepo := repositories.NewUserRepository(db.Collection(repositories.UsersCollection))
	reviewRepo := repositories.NewReviewRepository(db.Collection(repositories.ReviewsCollection))
	for _, ensure := range []func(context.Context) error{storeRepo.EnsureIndexes, userRepo.EnsureIndexes, reviewRepo.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			logrus.WithError(err).Fatal("failed to create indexes")
		}
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	redisCache := cache.NewRedisCache(rdb, "store-finder:", cfg.CacheTTL)
	if err := redisCache.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("redis unavailable, aggregations will not be cached")
	}

	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	storeService := services.NewStoreService(storeRepo, redisCache, cfg.PageSize, cfg.NearMaxDistance)
	userService := services.NewUserService(userRepo, storeService, tokens)
	reviewService := services.NewReviewService(reviewRepo, storeService, redisCache)
	uploader := services.NewPhotoUploader(cfg.UploadDir, cfg.UploadMaxWidth, cfg.UploadTimeout)

	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	storeHandler := handlers.NewStoreHandler(storeService, uploader, cfg.UploadMaxBytes)
	reviewHandler := handlers.NewReviewHandler(reviewService)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	requireAuth := middleware.JWTMiddleware(tokens)

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// Public store routes
	r.HandleFunc("/stores", storeHandler.ListStores).Methods("GET", "OPTIONS")
	r.HandleFunc("/stores/{slug}", storeHandler.GetStoreBySlug).Methods("GET", "OPTIONS")
	r.HandleFunc("/stores/{id}/reviews", reviewHandler.ListReviews).Methods("GET", "OPTIONS")
	r.HandleFunc("/tags", storeHandler.GetStoresByTag).Methods("GET", "OPTIONS")
	r.HandleFunc("/tags/{tag}", storeHandler.GetStoresByTag).Methods("GET", "OPTIONS")
	r.HandleFunc("/top", storeHandler.GetTopStores).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/search", storeHandler.SearchStores).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/stores/near", storeHandler.MapStores).Methods("GET", "OPTIONS")
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploader.Dir()))))

	// Authenticated routes
	authed := r.NewRoute().Subrouter()
	authed.Use(requireAuth)
	authed.HandleFunc("/account", userHandler.GetAccount).Methods("GET", "OPTIONS")
	authed.HandleFunc("/account", userHandler.UpdateAccount).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/hearts", userHandler.GetHearts).Methods("GET", "OPTIONS")
	authed.HandleFunc("/api/stores/{id}/heart", userHandler.ToggleHeart).Methods("POST", "OPTIONS")
	authed.HandleFunc("/stores", storeHandler.CreateStore).Methods("POST", "OPTIONS")
	authed.HandleFunc("/stores/{id}/edit", storeHandler.EditStore).Methods("GET", "OPTIONS")
	authed.HandleFunc("/stores/{id}", storeHandler.UpdateStore).Methods("POST", "OPTIONS")
	authed.HandleFunc("/reviews/{id}", reviewHandler.AddReview).Methods("POST", "OPTIONS")

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.AppPort).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
	if err := rdb.Close(); err != nil {
		logrus.WithError(err).Warn("failed to close redis client")
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("failed to disconnect from MongoDB")
	}
}
