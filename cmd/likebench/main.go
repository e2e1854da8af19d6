// likebench 压测点赞写路径：N 个用户并发点赞同一篇文章，
// 通知经 outbox relay 投递，统计写延迟与投递落地延迟。
//
//	N=10000 CONC=16 go run ./cmd/likebench
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/app"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/database"
	"github.com/d60-Lab/blogapi/pkg/eventbus"
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

// landingPublisher 记录每条事件从写入 outbox 到被投递的耗时；配置了 Kafka 时继续转发
type landingPublisher struct {
	next service.EventPublisher
	lags chan time.Duration
}

func (p *landingPublisher) Publish(ctx context.Context, msgs []eventbus.Message) error {
	if p.next != nil {
		if err := p.next.Publish(ctx, msgs); err != nil {
			return err
		}
	}
	now := time.Now()
	for _, m := range msgs {
		var ev struct {
			CreatedAt time.Time `json:"created_at"`
		}
		if json.Unmarshal(m.Value, &ev) == nil && !ev.CreatedAt.IsZero() {
			select {
			case p.lags <- now.Sub(ev.CreatedAt):
			default:
			}
		}
	}
	return nil
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

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)
	ctx := context.Background()

	pub := &landingPublisher{lags: make(chan time.Duration, N)}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := eventbus.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		pub.next = kp
	}
	svc := app.NewServices(cfg, app.Deps{DB: db, Publisher: pub})
	relay := service.NewOutboxRelay(svc.Outbox, pub, service.RelayOptions{
		Workers:      cfg.Kafka.Workers,
		BatchSize:    cfg.Kafka.BatchSize,
		PollInterval: 20 * time.Millisecond,
		ClaimLease:   cfg.Kafka.ClaimLease,
	})
	stop := relay.Start()

	// 作者与一篇热门文章，其余用户都来点赞
	run := uuid.New().String()[:8]
	author := model.User{Username: "celeb_" + run, Email: "celeb_" + run + "@example.com", PasswordHash: "x", Role: model.RoleAuthor, IsActive: true}
	mustDo(db.Create(&author).Error)
	post := model.Post{AuthorID: author.ID, Title: "bench " + run, Content: "bench"}
	mustDo(db.Omit("Author").Create(&post).Error)

	users := make([]model.User, N)
	for i := range users {
		name := fmt.Sprintf("b%s_%d", run, i)
		users[i] = model.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: model.RoleGuest, IsActive: true}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	// 事务 + 通知 + outbox
	recs := make([]time.Duration, 0, N)
	var mu sync.Mutex
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)
	workers := CONC
	if workers > N {
		workers = N
	}
	var failed int
	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				u := users[i]
				st := time.Now()
				_, err := svc.Engagement.ToggleLike(ctx, identity.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}, post.ID)
				d := time.Since(st)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					recs = append(recs, d)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	toggleDur := time.Since(t0)

	// 等 relay 把 outbox 清空
	drainStart := time.Now()
	for time.Since(drainStart) < 2*time.Minute {
		pending, err := svc.Outbox.CountByStatus(ctx, model.OutboxPending)
		if err == nil && pending == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	drainDur := time.Since(drainStart)
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_ = stop(sctx)
	cancel()
	close(pub.lags)
	lags := make([]time.Duration, 0, N)
	for d := range pub.lags {
		lags = append(lags, d)
	}

	// 对照：只写 post_likes，无事务、无通知
	eng := repository.NewEngagementRepository(db)
	t1 := time.Now()
	for i := 0; i < N; i++ {
		_, _ = eng.Remove(ctx, repository.RelPostLike, post.ID, users[i].ID)
		_, _ = eng.Add(ctx, repository.RelPostLike, post.ID, users[i].ID)
	}
	rawDur := time.Since(t1)

	q0 := time.Now()
	cnt, _ := svc.Engagement.CountLikes(ctx, post.ID)
	countDur := time.Since(q0)
	q1 := time.Now()
	_, _ = svc.Feed.Trending(ctx, identity.Anonymous, service.DefaultTrendingLimit)
	trendDur := time.Since(q1)

	// 每个点赞者恰好一次 Liked，作者应收到同样多条通知
	ok := len(recs)
	var notes int64
	mustDo(db.Model(&model.Notification{}).Where("recipient_id = ? AND post_id = ?", author.ID, post.ID).Count(&notes).Error)

	fmt.Printf("N=%d, CONC=%d, failed=%d\n", N, CONC, failed)
	fmt.Printf("Invariants: likes=%d (want %d), notifications=%d (want %d)\n", cnt, N, notes, ok)
	violated := cnt != int64(N) || notes != int64(ok)
	if len(recs) > 0 {
		fmt.Printf("Toggle like total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
			toggleDur, toggleDur/time.Duration(len(recs)), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	}
	fmt.Printf("Raw remove+add total: %v, per op: %v\n", rawDur, rawDur/time.Duration(N))
	fmt.Printf("Count likes (%d) latency: %v\n", cnt, countDur)
	fmt.Printf("Trending latency: %v\n", trendDur)
	if len(lags) > 0 {
		fmt.Printf("Outbox landing: samples=%d, p50=%v, p95=%v, p99=%v, drain=%v\n",
			len(lags), pct(lags, 0.50), pct(lags, 0.95), pct(lags, 0.99), drainDur)
	}
	if violated {
		fmt.Println("INVARIANT VIOLATED")
		os.Exit(1)
	}
}
