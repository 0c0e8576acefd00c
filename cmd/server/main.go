package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-interview-go/internal/api/handler"
	"ai-interview-go/internal/api/router"
	"ai-interview-go/internal/config"
	"ai-interview-go/internal/interview"
	"ai-interview-go/internal/llm"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/parser"
	"ai-interview-go/internal/processor"
	"ai-interview-go/internal/recommend"
	"ai-interview-go/internal/storage"
	"ai-interview-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	hlog.SetLogger(hertzadapter.From(logger.Logger))
	logger.Info().Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	storageManager, err := storage.NewStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil {
		logger.Fatal().Msg("MySQL不可用，无法提供服务")
	}
	logger.Info().Msg("存储服务初始化成功")

	// 本地推荐/质量模型，文件缺失时延迟加载并降级
	recommendSvc := recommend.NewService(cfg.Model.ArtifactPath)
	if recommendSvc.Available() {
		logger.Info().Str("path", cfg.Model.ArtifactPath).Msg("本地模型加载成功")
	} else {
		logger.Warn().Str("path", cfg.Model.ArtifactPath).Msg("本地模型不可用，推荐与质量评估将降级")
	}

	chatModel, err := llm.NewChatModel(&cfg.LLM)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化聊天模型失败")
	}
	ocrClient, err := parser.NewOCRClient(&cfg.OCR)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化OCR客户端失败")
	}
	resumeParser := parser.NewResumeParser(chatModel)

	var chatMemory interview.ChatMemory
	if storageManager.Redis != nil {
		chatMemory, err = interview.NewRedisChatMemory(storageManager.Redis.Client, time.Duration(cfg.Interview.SessionTTLHours)*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化面试会话存储失败")
		}
	} else {
		logger.Warn().Msg("Redis不可用，面试历史退化为进程内存储")
		chatMemory = interview.NewInMemoryChatMemory()
	}
	interviewSvc := interview.NewService(chatModel, chatMemory, storageManager.MySQL, cfg.Interview)

	// 启动简历处理消费者，管道依赖全部就绪才启动
	var stopConsumer chan<- struct{}
	if storageManager.RabbitMQ != nil && storageManager.MySQL != nil &&
		storageManager.MinIO != nil && storageManager.Redis != nil {
		proc := processor.NewProcessor(
			storageManager.MinIO,
			storageManager.MySQL,
			storageManager.Redis,
			ocrClient,
			resumeParser,
			recommendSvc,
			cfg.RabbitMQ,
		)
		stopConsumer, err = proc.Start(storageManager.RabbitMQ)
		if err != nil {
			logger.Fatal().Err(err).Msg("启动简历处理消费者失败")
		}
		logger.Info().Str("queue", cfg.RabbitMQ.RawResumeQueue).Msg("简历处理消费者已启动")
	} else {
		logger.Warn().Msg("RabbitMQ不可用，简历异步处理管道未启动")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	resumeHandler := handler.NewResumeHandler(cfg, storageManager)
	modelHandler := handler.NewModelHandler(cfg, recommendSvc, storageManager)
	modelHandler.CacheModelMeta(ctx)
	interviewHandler := handler.NewInterviewHandler(interviewSvc, storageManager)
	router.RegisterRoutes(h, cfg, resumeHandler, modelHandler, interviewHandler)
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP路由注册成功")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出")

	if stopConsumer != nil {
		close(stopConsumer)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}
