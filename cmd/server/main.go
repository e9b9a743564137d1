package main // Entry point package

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/allocation"
    "github.com/campushq/campus-reservation/internal/booking"
    "github.com/campushq/campus-reservation/internal/cache"
    "github.com/campushq/campus-reservation/internal/config"
    "github.com/campushq/campus-reservation/internal/database"
    "github.com/campushq/campus-reservation/internal/handler"
    "github.com/campushq/campus-reservation/internal/lock"
    "github.com/campushq/campus-reservation/internal/middleware"
    "github.com/campushq/campus-reservation/internal/queue"
    "github.com/campushq/campus-reservation/internal/realtime"
    "github.com/campushq/campus-reservation/internal/repository"
    "github.com/campushq/campus-reservation/internal/router"
    "github.com/campushq/campus-reservation/internal/search"
    queue_publisher "github.com/campushq/campus-reservation/internal/service"
)

func main() {
    // .env is optional; real deployments inject the environment.
    _ = godotenv.Load()
    cfg := config.Load()

    logger, err := config.NewLogger(cfg.Env)
    if err != nil {
        log.Fatalf("logger init failed: %v", err)
    }
    defer logger.Sync()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        logger.Fatal("database connection failed", zap.Error(err))
    }
    defer db.Close()

    // Redis is optional: without it the search cache and the response
    // cache degrade to pass-through and rate limiting is disabled.
    rdb := config.NewRedisClient()
    if rdb == nil {
        logger.Warn("redis unavailable, caching and rate limiting disabled")
    }
    store := cache.New(rdb)

    hub := realtime.NewHub(logger)
    go hub.Run()

    seatRepo := repository.NewSeatRepo(db)
    roomRepo := repository.NewRoomRepo(db)
    studentRepo := repository.NewStudentRepo(db)
    teacherRepo := repository.NewTeacherRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    campusRepo := repository.NewCampusRepo(db)

    ctx := context.Background()

    locks := lock.NewManager()
    go locks.StartSweeper(ctx, lock.TTL)

    detector := booking.NewDetector(bookingRepo)
    engine := allocation.NewEngine(studentRepo, seatRepo, roomRepo, campusRepo, hub, logger)
    svc := booking.NewService(
        locks, roomRepo, teacherRepo, bookingRepo, detector,
        engine, hub, store, queue_publisher.PublishBookingCreated, logger,
    )
    go svc.StartSweeper(ctx, cfg.SweepInterval)

    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            logger.Error("booking consumer stopped", zap.Error(err))
        }
    }()

    ranker := search.NewRanker(campusRepo, detector, store, cfg.SearchCacheTTL, logger)

    bookingHandler := handler.NewBookingHandler(svc, teacherRepo, logger)
    searchHandler := handler.NewSearchHandler(ranker, logger)
    allocHandler := handler.NewAllocationHandler(engine, roomRepo, campusRepo, seatRepo, logger)
    seatHandler := handler.NewSeatHandler(seatRepo, roomRepo, campusRepo, engine, hub, logger)
    roomHandler := handler.NewRoomHandler(db, roomRepo, seatRepo, bookingRepo, logger)
    browseHandler := handler.NewBrowseHandler(campusRepo)
    eventsHandler := handler.NewEventsHandler(hub)

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    responseCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    router.RegisterRoutes(e, eventsHandler)
    router.RegisterTeacher(e, bookingHandler, searchHandler, cfg.JWTSecret)
    router.RegisterAdmin(e, allocHandler, seatHandler, roomHandler, cfg.JWTSecret)
    router.RegisterPublic(e, browseHandler, responseCache)

    addr := ":" + cfg.Port
    logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
    if err := e.Start(addr); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}
