// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"org-directory-go/internal/config"
	"org-directory-go/internal/handler"
	"org-directory-go/internal/middleware"
	"org-directory-go/internal/pipeline"
	"org-directory-go/internal/repository"
	"org-directory-go/internal/service"
	"org-directory-go/pkg/database"
	"org-directory-go/pkg/es"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/kafka"
	"org-directory-go/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库并迁移表结构
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 可选组件：Redis 计数器、Kafka 事件、Elasticsearch 读模型
	var counter kafka.AttemptCounter = kafka.NewMemoryAttemptCounter()
	if cfg.Database.Redis.Addr != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			log.Warnf("Redis 不可用，改用进程内重试计数: %v", err)
		} else {
			defer rdb.Close()
			counter = database.NewAttemptCounter(rdb, 24*time.Hour)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Brokers != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
	}

	var searchClient *es.Client
	if cfg.Elasticsearch.Addresses != "" {
		client, err := es.NewClient(cfg.Elasticsearch)
		if err == nil {
			err = client.EnsureIndex(context.Background())
		}
		if err != nil {
			log.Warnf("Elasticsearch 不可用，全文检索已禁用: %v", err)
		} else {
			searchClient = client
		}
	}

	// 5. 初始化 Repository
	activityRepo := repository.NewActivityRepository(db)
	buildingRepo := repository.NewBuildingRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	phoneRepo := repository.NewPhoneRepository(db)
	txm := repository.NewTxManager(db)

	// 6. 初始化 Service (依赖注入)
	paging := service.Paging{DefaultSize: cfg.Directory.DefaultPageSize, MaxSize: cfg.Directory.MaxPageSize}
	activityService := service.NewActivityService(activityRepo, txm, publisher, service.ActivityOptions{
		MaxDepth:         cfg.Directory.MaxActivityDepth,
		RecursiveQueries: cfg.Directory.RecursiveQueries,
		Paging:           paging,
	})
	phoneService := service.NewPhoneService(phoneRepo, orgRepo, publisher)
	buildingService := service.NewBuildingService(buildingRepo, orgRepo, phoneRepo, txm, publisher, paging)
	orgService := service.NewOrganizationService(service.OrganizationDeps{
		Organizations: orgRepo,
		Buildings:     buildingRepo,
		Activities:    activityRepo,
		Phones:        phoneRepo,
		PhoneService:  phoneService,
		Hierarchy:     activityService,
		TxManager:     txm,
		Publisher:     publisher,
		Paging:        paging,
	})

	// 7. 启动后台 Kafka 消费者，把目录变更同步到检索索引
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumerDone := make(chan struct{})
	if cfg.Kafka.Brokers != "" && searchClient != nil {
		indexer := pipeline.NewIndexer(orgService, searchClient)
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(consumerCtx, cfg.Kafka, indexer, counter)
		}()
	} else {
		close(consumerDone)
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	var searcher handler.OrganizationSearcher
	if searchClient != nil {
		searcher = searchClient
	}
	handler.RegisterRoutes(r, handler.Handlers{
		Organizations: handler.NewOrganizationHandler(orgService, searcher, paging),
		Activities:    handler.NewActivityHandler(activityService),
		Phones:        handler.NewPhoneHandler(phoneService),
		Buildings:     handler.NewBuildingHandler(buildingService),
		Health:        handler.NewHealthHandler(db),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("Kafka 消费者未在超时内退出")
	}
	log.Info("服务已优雅关闭")
}
