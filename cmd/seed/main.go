// seed 用 gofakeit 生成演示数据：用户、文章、评论、点赞与收藏
//
//	USERS=20 POSTS=60 SEED=42 go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/app"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/database"
	"github.com/d60-Lab/blogapi/pkg/logger"
)

const seedPassword = "password123"

var categories = []string{"tech", "life", "travel", "food", "music"}

func must[T any](v T, err error) T {
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init(cfg.Log.Level, "console")
	defer logger.Sync()

	db := must(database.InitDB(cfg))
	defer database.Close(db)
	// 种子数据不受发文角色限制
	cfg.Auth.RequireAuthorRole = false
	svc := app.NewServices(cfg, app.Deps{DB: db})

	nUsers := envInt("USERS", 20)
	nPosts := envInt("POSTS", 60)
	faker := gofakeit.New(int64(envInt("SEED", 42)))
	ctx := context.Background()

	users := make([]identity.Identity, 0, nUsers)
	for i := 0; i < nUsers; i++ {
		name := fmt.Sprintf("%s%d", strings.ToLower(faker.Username()), i)
		u, err := svc.Auth.Register(ctx, service.RegisterInput{
			Username: name,
			Email:    name + "@example.com",
			Password: seedPassword,
		})
		if err != nil {
			logger.Warn("skip user", zap.String("username", name), zap.Error(err))
			continue
		}
		users = append(users, identity.Identity{UserID: u.ID, Username: u.Username, Role: u.Role})
	}
	if len(users) == 0 {
		logger.Fatal("no users created")
	}
	// 第一个用户提升为管理员，其余一半为作者
	for i := range users {
		role := model.RoleGuest
		switch {
		case i == 0:
			role = model.RoleAdmin
		case i%2 == 1:
			role = model.RoleAuthor
		}
		if err := db.Model(&model.User{}).Where("id = ?", users[i].UserID).Update("role", role).Error; err != nil {
			logger.Fatal("set role", zap.Error(err))
		}
		users[i].Role = role
	}

	pick := func() identity.Identity { return users[faker.Number(0, len(users)-1)] }

	var posts, comments, likes, marks int
	for i := 0; i < nPosts; i++ {
		author := pick()
		p, err := svc.Content.CreatePost(ctx, author, service.CreatePostInput{
			Title:    strings.TrimSuffix(faker.Sentence(faker.Number(3, 8)), "."),
			Content:  faker.Paragraph(2, 4, 12, "\n\n"),
			Category: faker.RandomString(categories),
			Tags:     strings.Join([]string{faker.Word(), faker.Word()}, ","),
		})
		if err != nil {
			logger.Warn("skip post", zap.Error(err))
			continue
		}
		posts++

		for j := faker.Number(0, 4); j > 0; j-- {
			c, err := svc.Content.CreateComment(ctx, pick(), p.ID, service.CommentInput{Content: faker.Sentence(faker.Number(4, 16))})
			if err != nil {
				continue
			}
			comments++
			if faker.Bool() {
				if _, err := svc.Engagement.ToggleCommentLike(ctx, pick(), c.ID); err == nil {
					likes++
				}
			}
		}
		// 每个用户最多一次，toggle 两次会取消
		for _, u := range users {
			if faker.Number(0, 9) < 3 {
				if _, err := svc.Engagement.ToggleLike(ctx, u, p.ID); err == nil {
					likes++
				}
			}
			if faker.Number(0, 9) == 0 {
				if _, err := svc.Engagement.ToggleBookmark(ctx, u, p.ID); err == nil {
					marks++
				}
			}
		}
	}

	logger.Info("seed done",
		zap.Int("users", len(users)),
		zap.Int("posts", posts),
		zap.Int("comments", comments),
		zap.Int("likes", likes),
		zap.Int("bookmarks", marks),
		zap.String("admin", users[0].Username),
		zap.String("password", seedPassword),
	)
}
