package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "petvision-server-go/docs"
	"petvision-server-go/internal/core/providers/vlllm"
	"petvision-server-go/internal/domain/analysis"
	domainauth "petvision-server-go/internal/domain/auth"
	"petvision-server-go/internal/domain/eventbus"
	domainimage "petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/domain/session"
	platformconfig "petvision-server-go/internal/platform/config"
	platformerrors "petvision-server-go/internal/platform/errors"
	platformlogging "petvision-server-go/internal/platform/logging"
	platformobservability "petvision-server-go/internal/platform/observability"
	platformstorage "petvision-server-go/internal/platform/storage"
	httptransport "petvision-server-go/internal/transport/http"
	httpvision "petvision-server-go/internal/transport/http/vision"
	"petvision-server-go/internal/utils"
)

const httpShutdownTimeout = 10 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	bus                   evbus.Bus
	counter               *eventbus.TransitionCounter
	db                    *gorm.DB
	store                 session.Store
	provider              *vlllm.Provider
	pipeline              *domainimage.Pipeline
	analysis              *analysis.Service
	tokens                *domainauth.SessionToken
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context) error {
	return RunWithLoader(ctx, platformconfig.NewLoader())
}

// RunWithLoader 使用指定的配置加载器启动服务
func RunWithLoader(ctx context.Context, loader *platformconfig.Loader) error {
	state := &appState{loader: loader}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	// 任一服务退出时同样触发关闭
	waitCtx, waitCancel := context.WithCancel(signalCtx)
	defer waitCancel()
	go func() {
		<-groupCtx.Done()
		waitCancel()
	}()

	return waitForShutdown(waitCtx, cancel, logger, group)
}

func (s *appState) close() {
	logger := s.logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.Close(ctx); err != nil {
			logger.WarnTag("会话", "会话存储未正常关闭: %v", err)
		}
		cancel()
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			logger.WarnTag("存储", "数据库未正常关闭: %v", err)
		}
	}
	if s.provider != nil {
		_ = s.provider.Cleanup()
	}
	if shutdown := s.observabilityShutdown; shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := shutdown(ctx); err != nil {
			logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
		cancel()
	}
	if s.logProvider != nil {
		_ = s.logProvider.Close()
	}
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("引导", "%s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag("引导", "%s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "session:init-store",
			Title:     "Initialise session store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSessionStoreStep,
		},
		{
			ID:        "vlllm:init-provider",
			Title:     "Initialise vision model provider",
			DependsOn: []string{"observability:setup-hooks"},
			Kind:      platformerrors.KindConfig,
			Execute:   initProviderStep,
		},
		{
			ID:        "analysis:init-service",
			Title:     "Initialise analysis service",
			DependsOn: []string{"eventbus:init", "session:init-store", "vlllm:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAnalysisStep,
		},
		{
			ID:        "auth:init-session-token",
			Title:     "Initialise session tokens",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initSessionTokenStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Legacy()
	state.slogger = logProvider.Slog()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag(
		"引导",
		"日志模块就绪 [%s] %s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: state.config.Observability.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	state.counter = eventbus.NewTransitionCounter()
	return eventbus.SetupEventHandlers(state.bus, state.logger, state.counter)
}

// initDatabaseStep 仅 sqlite 会话存储需要数据库
func initDatabaseStep(_ context.Context, state *appState) error {
	storeCfg := state.config.Session.Store
	if !strings.EqualFold(storeCfg.Type, session.DriverSQLite) {
		return nil
	}

	path := storeCfg.SQLite.Path
	if path == "" {
		path = filepath.Join("data", "petvision.db")
	}
	db, err := platformstorage.Open(path)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to initialize database", err)
	}
	state.db = db
	state.logger.InfoTag("存储", "SQLite 数据库就绪: %s", path)
	return nil
}

func initSessionStoreStep(ctx context.Context, state *appState) error {
	cfg := session.ConfigFrom(state.config.Session)
	store, err := session.New(cfg, session.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session:init-store", "failed to create session store", err)
	}
	state.store = store

	if stats, err := store.Stats(ctx); err == nil {
		state.logger.InfoTag("会话", "会话存储就绪 type=%v ttl=%s", stats["type"], state.config.Session.TTL)
	} else {
		state.logger.WarnTag("会话", "会话存储状态读取失败: %v", err)
	}
	return nil
}

func initProviderStep(ctx context.Context, state *appState) error {
	name, vcfg, ok := state.config.SelectedVLLLM()
	if !ok {
		return platformerrors.New(platformerrors.KindConfig, "vlllm:init-provider",
			fmt.Sprintf("selected VLLLM %q is not configured", state.config.Selected.VLLLM))
	}

	provider, err := vlllm.NewProvider(vlllm.ConfigFrom(name, vcfg), state.logger)
	if err != nil {
		return err
	}
	if err := provider.Initialize(ctx); err != nil {
		state.logger.ErrorTag("推理", "初始化 provider 失败: %v", err)
		return err
	}
	state.provider = provider
	return nil
}

func initAnalysisStep(_ context.Context, state *appState) error {
	_, vcfg, _ := state.config.SelectedVLLLM()
	assembler := prompt.NewAssembler(
		vcfg.ImageMIMEType,
		inference.DefaultGenerationConfig(),
		inference.DefaultSafetyPolicy(),
	)

	svc, err := analysis.NewService(analysis.Options{
		Store:     state.store,
		Assembler: assembler,
		Client:    state.provider,
		Bus:       state.bus,
		Logger:    state.logger,
	})
	if err != nil {
		return err
	}
	state.analysis = svc

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Security: &state.config.Security,
		Logger:   state.logger,
	})
	if err != nil {
		return err
	}
	state.pipeline = pipeline
	return nil
}

func initSessionTokenStep(_ context.Context, state *appState) error {
	secret := state.config.Session.Secret
	if secret == "" {
		secret = uuid.NewString()
		state.logger.WarnTag("会话", "未配置 session.secret，使用随机密钥，重启后已有会话失效")
	}
	state.tokens = domainauth.NewSessionToken(secret).WithTTL(state.config.Session.TTL)
	return nil
}

// buildHTTPHandler 组装路由，不启动监听
func buildHTTPHandler(state *appState) (http.Handler, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:            config,
		Logger:            logger,
		SessionMiddleware: httpvision.SessionMiddleware(state.tokens, config.Session.CookieName, logger),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}
	router := httpRouter.Engine

	staticDir := config.Web.StaticDir
	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") || !config.Web.Enabled {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api Not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})

	visionService, err := httpvision.NewService(httpvision.Options{
		Analysis:     state.analysis,
		Pipeline:     state.pipeline,
		PreviewWidth: config.Security.PreviewWidth,
		MaxPixels:    config.Security.MaxPixels,
		MaxFileSize:  config.Security.MaxFileSize,
		Logger:       logger,
	})
	if err != nil {
		logger.ErrorTag("HTTP", "Vision 服务初始化失败: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "vision:new-service", "failed to create vision service", err)
	}

	health := httptransport.NewHealthHandler(httptransport.HealthOptions{
		Store:    state.store,
		Provider: state.provider.Info(),
		Counter:  state.counter,
		Pipeline: state.pipeline,
		Logger:   logger,
	})

	// 注册服务路由
	visionService.Register(httpRouter.Session)
	health.Register(httpRouter.API)

	return router, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	handler, err := buildHTTPHandler(state)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://%s", addr)
		logger.InfoTag("HTTP", "在线文档入口: http://%s/docs", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

// startCleanupLoop 定期清理过期会话
func startCleanupLoop(state *appState, g *errgroup.Group, groupCtx context.Context) {
	interval := state.config.Session.Store.Cleanup
	if interval <= 0 || state.store == nil {
		return
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := state.store.CleanupExpired(groupCtx); err != nil && groupCtx.Err() == nil {
					state.logger.WarnTag("会话", "清理过期会话失败: %v", err)
				}
			}
		}
	})
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到关闭信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(httpShutdownTimeout + 5*time.Second):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}
	startCleanupLoop(state, g, groupCtx)
	return nil
}
