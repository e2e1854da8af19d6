// Package app wires stores, services and the HTTP engine together.
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/api/handler"
	"github.com/d60-Lab/blogapi/internal/api/router"
	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/internal/service"
)

// Deps 外部依赖；Redis 与 Blob 可以为空
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	Blob  service.BlobStore
	// Publisher 为空时不启动 outbox relay
	Publisher service.EventPublisher
}

type App struct {
	Engine   *gin.Engine
	Services *Services
	Relay    *service.OutboxRelay
}

// Services 业务层，HTTP 与命令行工具共用
type Services struct {
	Auth          service.AuthService
	Content       service.ContentService
	Engagement    service.EngagementService
	Notifications service.NotificationService
	Feed          service.FeedService
	Profiles      service.ProfileService
	Media         service.MediaService
	Outbox        repository.OutboxRepository
	Cache         *cache.FeedCache
}

func NewServices(cfg *config.Config, d Deps) *Services {
	users := repository.NewUserRepository(d.DB)
	posts := repository.NewPostRepository(d.DB)
	comments := repository.NewCommentRepository(d.DB)
	eng := repository.NewEngagementRepository(d.DB)
	outbox := repository.NewOutboxRepository(d.DB)

	var revoked cache.RevocationStore
	if d.Redis != nil {
		revoked = cache.NewRedisRevocations(d.Redis)
	} else {
		revoked = cache.NewMemoryRevocations()
	}
	feed := cache.NewFeedCache(d.Redis, cfg.Redis.CacheTTL)
	// 没有 Publisher 就没有 relay 消费 outbox，不写入
	var notifOutbox repository.OutboxRepository
	if d.Publisher != nil {
		notifOutbox = outbox
	}
	notifications := service.NewNotificationService(d.DB, repository.NewNotificationRepository(d.DB), notifOutbox)

	return &Services{
		Auth: service.NewAuthService(users, revoked, feed, service.AuthOptions{
			Secret:     cfg.JWT.Secret,
			Issuer:     cfg.JWT.Issuer,
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
		}),
		Content:       service.NewContentService(d.DB, posts, comments, eng, notifications, feed, service.ContentOptions{RequireAuthorRole: cfg.Auth.RequireAuthorRole}),
		Engagement:    service.NewEngagementService(d.DB, posts, comments, eng, notifications, feed),
		Notifications: notifications,
		Feed:          service.NewFeedService(users, posts, comments, eng, notifications, feed),
		Profiles:      service.NewProfileService(d.DB, users, posts, comments, eng),
		Media:         service.NewMediaService(d.Blob, cfg.Storage.MaxUploadSize),
		Outbox:        outbox,
		Cache:         feed,
	}
}

// Build 组装 HTTP 引擎；Publisher 非空时附带 outbox relay（未启动）
func Build(cfg *config.Config, d Deps) *App {
	svc := NewServices(cfg, d)

	checks := map[string]handler.Pinger{"database": dbPinger{d.DB}}
	if d.Redis != nil {
		checks["redis"] = redisPinger{d.Redis}
	}
	if p, ok := d.Blob.(handler.Pinger); ok {
		checks["storage"] = p
	}

	h := handler.New(handler.Services{
		Auth:          svc.Auth,
		Content:       svc.Content,
		Engagement:    svc.Engagement,
		Notifications: svc.Notifications,
		Feed:          svc.Feed,
		Profiles:      svc.Profiles,
		Media:         svc.Media,
		Checks:        checks,
	})

	a := &App{Engine: router.New(cfg, h, svc.Auth), Services: svc}
	if d.Publisher != nil {
		a.Relay = service.NewOutboxRelay(svc.Outbox, d.Publisher, service.RelayOptions{
			Workers:      cfg.Kafka.Workers,
			BatchSize:    cfg.Kafka.BatchSize,
			PollInterval: cfg.Kafka.PollInterval,
			ClaimLease:   cfg.Kafka.ClaimLease,
		})
	}
	return a
}

type dbPinger struct{ db *gorm.DB }

func (p dbPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return p.client.Ping(ctx).Err()
}
