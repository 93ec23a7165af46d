package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/millionaire/backend/internal/config"
	"github.com/zhouzirui/millionaire/backend/internal/handler"
	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/repository"
	"github.com/zhouzirui/millionaire/backend/internal/service/ai"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
	"github.com/zhouzirui/millionaire/backend/internal/service/directory"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/internal/service/vonage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载 .env 文件
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("failed to open game store", "kind", cfg.Store.Kind, "error", err)
	}
	defer closeRepo()

	responses, err := audience.OpenLog(cfg.Audience.ResponsesFile)
	if err != nil {
		logger.Fatal("failed to open audience log", "path", cfg.Audience.ResponsesFile, "error", err)
	}
	defer responses.Close()

	deps := gameService.Deps{
		Responses:  responses,
		FromNumber: cfg.Vonage.FromNumber,
	}

	// 初始化出题服务
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			logger.Warn("failed to initialize AI service, questions unavailable: check the Ark model environment variables", "error", err)
		} else {
			deps.Generator = aiService
			logger.Info("AI service initialized successfully")
		}
	} else {
		logger.Info("Ark credentials missing, question generation disabled")
	}

	// 初始化短信、语音令牌与号码服务
	if cfg.Vonage.Enabled() {
		client, err := vonage.NewClient(cfg.Vonage)
		if err != nil {
			logger.Warn("failed to initialize Vonage client", "error", err)
		} else {
			deps.Messenger = client
			deps.Routes = client
			deps.Numbers = client
			deps.Tokens = client
			logger.Info("Vonage client initialized successfully")
		}
	} else {
		logger.Info("Vonage credentials missing, audience texting and calls disabled")
	}

	// 初始化报名名单
	if cfg.Airtable.Enabled() {
		client, err := directory.NewClient(cfg.Airtable)
		if err != nil {
			logger.Warn("failed to initialize participant directory", "error", err)
		} else {
			deps.Directory = client
			logger.Info("participant directory initialized successfully")
		}
	} else {
		logger.Info("Airtable credentials missing, phone-a-dev disabled")
	}

	svc := gameService.NewService(repo, deps)
	router := handler.NewRouter(ctx, svc, cfg.Audience.PollInterval, cfg.Vonage.FromNumber)

	startServer(ctx, cfg.Server, router)
}

// openRepository 按配置打开游戏存储，并返回释放函数。
func openRepository(ctx context.Context, cfg config.StoreConfig) (repository.Repository, func(), error) {
	switch cfg.Kind {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		logger.Info("using redis game store", "addr", cfg.RedisURI)
		return repository.NewRedisRepository(client), func() { client.Close() }, nil

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.Info("using mongo game store", "database", cfg.MongoDatabase)
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		}
		return repository.NewMongoRepository(client.Database(cfg.MongoDatabase)), closeFn, nil

	default:
		repo, err := repository.NewFileRepository(cfg.GamesFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file game store", "path", cfg.GamesFile)
		return repo, func() {}, nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("millionaire backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
