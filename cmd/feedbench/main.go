// feedbench 对比热门榜与全站统计在无缓存 / Redis 读穿缓存 / 缓存+写入失效三种场景下的延迟。
//
//	POSTS=2000 USERS=500 REQS=3000 go run ./cmd/feedbench
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/app"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

type scenarioResult struct {
	durations []time.Duration
	hits      int64
	misses    int64
	cacheKeys int64
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	nUsers := envInt("USERS", 500)
	nPosts := envInt("POSTS", 2000)
	nReqs := envInt("REQS", 3000)
	writeEvery := envInt("WRITE_EVERY", 20)

	redisAddr := cfg.Redis.Addr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	fmt.Println("Setting up test data...")
	run := uuid.NewString()[:8]
	users := make([]model.User, nUsers)
	for i := range users {
		name := fmt.Sprintf("f%s_%d", run, i)
		users[i] = model.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: model.RoleAuthor, IsActive: true}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	posts := make([]model.Post, nPosts)
	for i := range posts {
		posts[i] = model.Post{AuthorID: users[i%nUsers].ID, Title: fmt.Sprintf("post %s %d", run, i), Content: "bench"}
	}
	mustDo(db.Omit("Author").CreateInBatches(&posts, 500).Error)

	// 长尾分布：少数文章拿走大部分点赞
	rng := rand.New(rand.NewSource(1))
	likes := make([]model.PostLike, 0, nUsers*8)
	seen := make(map[[2]uint64]bool)
	for _, u := range users {
		for k := 0; k < 8; k++ {
			p := posts[int(math.Pow(rng.Float64(), 3)*float64(nPosts))]
			key := [2]uint64{p.ID, u.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			likes = append(likes, model.PostLike{PostID: p.ID, UserID: u.ID, CreatedAt: time.Now().UTC()})
		}
	}
	mustDo(db.CreateInBatches(&likes, 1000).Error)
	fmt.Printf("Test data ready: users=%d posts=%d likes=%d\n", nUsers, nPosts, len(likes))

	viewer := identity.Identity{UserID: users[0].ID, Username: users[0].Username, Role: users[0].Role}
	writer := identity.Identity{UserID: users[1].ID, Username: users[1].Username, Role: users[1].Role}

	scenario := func(name string, deps app.Deps, writes bool) scenarioResult {
		client.FlushDB(ctx)
		svc := app.NewServices(cfg, deps)
		fmt.Printf("  %s...", name)
		out := make([]time.Duration, 0, nReqs)
		for i := 0; i < nReqs; i++ {
			if writes && i%writeEvery == 0 {
				_, _ = svc.Engagement.ToggleLike(ctx, writer, posts[rng.Intn(nPosts)].ID)
			}
			st := time.Now()
			var err error
			if i%2 == 0 {
				_, err = svc.Feed.Trending(ctx, viewer, service.DefaultTrendingLimit)
			} else {
				_, err = svc.Feed.GlobalStats(ctx)
			}
			if err != nil {
				panic(err)
			}
			out = append(out, time.Since(st))
		}
		fmt.Println(" done")
		hits, misses := svc.Cache.Counters()
		keys, _ := client.DBSize(ctx).Result()
		return scenarioResult{durations: out, hits: hits, misses: misses, cacheKeys: keys}
	}

	results := []struct {
		name string
		res  scenarioResult
	}{
		{"No cache", scenario("No cache", app.Deps{DB: db}, false)},
		{"Read-through", scenario("Read-through", app.Deps{DB: db, Redis: client}, false)},
		{"Read-through+writes", scenario("Read-through+writes", app.Deps{DB: db, Redis: client}, true)},
	}

	fmt.Printf("\nTrending/stats latency (%d req, %d posts, %d likes)\n", nReqs, nPosts, len(likes))
	for _, r := range results {
		fmt.Printf("%-20s avg=%v p95=%v p99=%v hits=%d misses=%d cache_keys=%d\n",
			r.name, avg(r.res.durations), pct(r.res.durations, 0.95), pct(r.res.durations, 0.99),
			r.res.hits, r.res.misses, r.res.cacheKeys)
	}
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range vs {
		total += v
	}
	return total / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
