// Package testutil opens throwaway stores for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/pkg/database"
)

var seq atomic.Int64

// NewDB 每个测试一个独立的内存 SQLite 库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:blogtest%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fileDSN WAL + busy_timeout，写事务以 BEGIN IMMEDIATE 开始，多连接并发写时排队而不是报错
func fileDSN(path string) string {
	return "file:" + path + "?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
}

// NewFileDB 文件型 SQLite，连接池允许 conns 个连接，用于并发测试
func NewFileDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fileDSN(filepath.Join(t.TempDir(), "blog.db"))), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewReplicatedDB 主库加一个只迁移了表结构、从不同步数据的副本。
// 走副本的读取看不到任何写入。
func NewReplicatedDB(t testing.TB) *gorm.DB {
	t.Helper()
	dir := t.TempDir()
	primary := fileDSN(filepath.Join(dir, "primary.db"))
	replica := fileDSN(filepath.Join(dir, "replica.db"))
	for _, dsn := range []string{primary, replica} {
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			t.Fatalf("open %s: %v", dsn, err)
		}
		if err := database.Migrate(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	db, err := database.InitDB(&config.Config{Database: config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      primary,
		Replicas: []string{replica},
		LogLevel: "silent",
	}})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewRedis 启动 miniredis 并返回客户端
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SeedUser 直接写入一个用户
func SeedUser(t testing.TB, db *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Bio:          model.DefaultBio,
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// SeedPost 直接写入一篇文章
func SeedPost(t testing.TB, db *gorm.DB, authorID uint64, title string) *model.Post {
	t.Helper()
	p := &model.Post{AuthorID: authorID, Title: title, Content: title + " body"}
	if err := db.Omit("Author").Create(p).Error; err != nil {
		t.Fatalf("seed post %s: %v", title, err)
	}
	return p
}
