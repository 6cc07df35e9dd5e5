package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-board-go/internal/api/handler"
	"job-board-go/internal/api/router"
	"job-board-go/internal/config"
	"job-board-go/internal/consumer"
	"job-board-go/internal/parser"
	"job-board-go/internal/storage"
	"job-board-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	appCoreLogger "job-board-go/internal/logger"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
)

var (
	version     = "1.0.0"        //nolint:gochecknoglobals
	serviceName = "job-board-go" //nolint:gochecknoglobals
)

// @title Job Board API
// @version 1.0
// @description 招聘平台服务：简历画像提取与岗位匹配分析
// @BasePath /api/v1
func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := tracing.InitProvider(ctx, &cfg.Tracing)
	if err != nil {
		glog.Warnf("初始化追踪导出失败，span将不上报: %v", err)
	}
	defer func() {
		if tracingProvider != nil {
			shutdownCtx, cancelTp := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelTp()
			if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
				glog.Warnf("关闭追踪导出失败: %v", err)
			}
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// PDF解析器选择：配置了Tika服务器则走Tika，否则本地Eino解析
	var pdfExtractor parser.PDFExtractor
	if cfg.Tika.Type == "tika" && cfg.Tika.ServerURL != "" {
		var tikaOptions []parser.TikaOption
		if cfg.Tika.MetadataMode == "full" {
			tikaOptions = append(tikaOptions, parser.WithFullMetadata(true))
		} else if cfg.Tika.MetadataMode == "none" {
			tikaOptions = append(tikaOptions, parser.WithMinimalMetadata(false), parser.WithFullMetadata(false))
		} else { // "minimal" or default
			tikaOptions = append(tikaOptions, parser.WithMinimalMetadata(true))
		}
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		tikaOptions = append(tikaOptions, parser.WithTikaLogger(log.New(os.Stderr, "[TikaPDFMain] ", log.LstdFlags)))
		pdfExtractor = parser.NewTikaPDFExtractor(cfg.Tika.ServerURL, tikaOptions...)
		glog.Info("使用Tika PDF解析器")
	} else {
		pdfExtractor, err = parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(log.New(os.Stderr, "[EinoPDFMain] ", log.LstdFlags)))
		if err != nil {
			glog.Fatalf("创建Eino PDF提取器失败: %v", err)
		}
		glog.Info("使用Eino PDF解析器")
	}

	// 实体识别：未配置API密钥时tagger为nil，提取器退化为纯关键词匹配
	var tagger parser.EntityTagger
	if cfg.HuggingFace.APIKey != "" {
		tagger = parser.NewHFEntityTagger(cfg.HuggingFace.APIURL,
			parser.WithTaggerModel(cfg.HuggingFace.Model),
			parser.WithTaggerAPIKey(cfg.HuggingFace.APIKey),
			parser.WithTaggerTimeout(time.Duration(cfg.HuggingFace.Timeout)*time.Second),
			parser.WithTaggerLogger(log.New(os.Stderr, "[HFTaggerMain] ", log.LstdFlags)),
		)
		glog.Info("实体识别服务已启用")
	} else {
		glog.Warn("未配置实体识别API密钥，技能提取仅使用关键词匹配")
	}

	resumeExtractor := parser.NewResumeExtractor(tagger,
		parser.WithKnownSkills(cfg.Matcher.KnownSkills),
		parser.WithScoreThreshold(cfg.Matcher.ScoreThreshold),
		parser.WithStrictTagging(cfg.HuggingFace.Strict),
	)
	glog.Info("简历提取器初始化成功")

	jobMatcher := parser.NewJobMatcher(resumeExtractor, parser.WithScoreWeights(parser.ScoreWeights{
		SkillWeight:    cfg.Matcher.SkillWeight,
		TitleHitScore:  cfg.Matcher.TitleHitScore,
		TitleMissScore: cfg.Matcher.TitleMissScore,
		DepthHitScore:  cfg.Matcher.DepthHitScore,
		DepthMissScore: cfg.Matcher.DepthMissScore,
		DepthThreshold: cfg.Matcher.DepthThreshold,
	}))
	glog.Info("岗位匹配器初始化成功")

	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, storageManager),
		Job:         handler.NewJobHandler(cfg, storageManager),
		Application: handler.NewApplicationHandler(cfg, storageManager, jobMatcher),
		Resume:      handler.NewResumeHandler(cfg, storageManager, pdfExtractor, resumeExtractor),
	}

	// 分析事件消费者：MQ不可用时跳过，申请流程仍可同步完成
	if storageManager.RabbitMQ != nil && storageManager.MySQL != nil {
		analyzedConsumer := consumer.NewAnalyzedConsumer(&cfg.RabbitMQ, storageManager.RabbitMQ, storageManager.MySQL)
		go func() {
			if _, err := analyzedConsumer.Start(context.Background()); err != nil {
				glog.Errorf("启动分析事件消费者失败: %v", err)
			}
		}()
	} else {
		glog.Warn("RabbitMQ或MySQL不可用，分析事件消费者未启动")
	}

	hertzTracer, hertzTracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		hertzTracer,
	)
	h.Use(hertztracing.ServerMiddleware(hertzTracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, storageManager, handlers)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger() {
	logFilePath := "logs/app.log"
	fileWriter, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("无法打开日志文件 %s: %v", logFilePath, err)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	level := zerolog.DebugLevel
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(multiWriter).With().Timestamp().Caller().Logger()

	// 同步替换应用内全局logger和zerolog库的全局logger
	appCoreLogger.Logger = logger
	zlog.Logger = logger
	zerolog.DefaultContextLogger = &appCoreLogger.Logger

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelDebug)

	log.Println("Logger initialized with Zerolog (appCoreLogger & glog via adapter), writing to console and file:", logFilePath)
}
