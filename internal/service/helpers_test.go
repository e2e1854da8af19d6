package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/internal/testutil"
)

type env struct {
	db            *gorm.DB
	feedCache     *cache.FeedCache
	users         repository.UserRepository
	posts         repository.PostRepository
	comments      repository.CommentRepository
	eng           repository.EngagementRepository
	notifRepo     repository.NotificationRepository
	outbox        repository.OutboxRepository
	notifications NotificationService
	engagement    EngagementService
	content       ContentService
	feed          FeedService
	profiles      ProfileService
	auth          AuthService
}

type envConfig struct {
	content  ContentOptions
	db       *gorm.DB
	noOutbox bool
}

type envOption func(*envConfig)

func withAuthorRole() envOption {
	return func(c *envConfig) { c.content.RequireAuthorRole = true }
}

// withDB 使用调用方准备好的数据库（已迁移）
func withDB(db *gorm.DB) envOption {
	return func(c *envConfig) { c.db = db }
}

// withoutOutbox 模拟未配置 Kafka：通知不写 outbox
func withoutOutbox() envOption {
	return func(c *envConfig) { c.noOutbox = true }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	var cfg envConfig
	for _, o := range opts {
		o(&cfg)
	}
	db := cfg.db
	if db == nil {
		db = testutil.NewDB(t)
	}
	_, rdb := testutil.NewRedis(t)
	co := cfg.content
	e := &env{
		db:        db,
		feedCache: cache.NewFeedCache(rdb, time.Minute),
		users:     repository.NewUserRepository(db),
		posts:     repository.NewPostRepository(db),
		comments:  repository.NewCommentRepository(db),
		eng:       repository.NewEngagementRepository(db),
		notifRepo: repository.NewNotificationRepository(db),
		outbox:    repository.NewOutboxRepository(db),
	}
	notifOutbox := e.outbox
	if cfg.noOutbox {
		notifOutbox = nil
	}
	e.notifications = NewNotificationService(db, e.notifRepo, notifOutbox)
	e.engagement = NewEngagementService(db, e.posts, e.comments, e.eng, e.notifications, e.feedCache)
	e.content = NewContentService(db, e.posts, e.comments, e.eng, e.notifications, e.feedCache, co)
	e.feed = NewFeedService(e.users, e.posts, e.comments, e.eng, e.notifications, e.feedCache)
	e.profiles = NewProfileService(db, e.users, e.posts, e.comments, e.eng)
	e.auth = NewAuthService(e.users, cache.NewRedisRevocations(rdb), e.feedCache, AuthOptions{
		Secret:     "test-secret",
		Issuer:     "blogapi-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	return e
}

func (e *env) user(t *testing.T, name string, role model.Role) identity.Identity {
	t.Helper()
	u := testutil.SeedUser(t, e.db, name, role)
	return identity.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (e *env) post(t *testing.T, author identity.Identity, title string) *PostView {
	t.Helper()
	p, err := e.content.CreatePost(context.Background(), author, CreatePostInput{Title: title, Content: title + " body"})
	require.NoError(t, err)
	return p
}

func (e *env) countNotifications(t *testing.T, recipient identity.Identity) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Notification{}).Where("recipient_id = ?", recipient.UserID).Count(&n).Error)
	return n
}
