package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogapi/internal/model"
)

// PostFilter 列表筛选条件，空字段不参与过滤
type PostFilter struct {
	Search   string
	Category string
	Tag      string
	Author   string
}

// LikeRank 按实时点赞数排序的结果
type LikeRank struct {
	PostID    uint64
	LikeCount int64
}

type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id uint64) (*model.Post, error)
	// LockByID 在事务内以 FOR UPDATE 读取，串行化同一 post 上的写操作
	LockByID(ctx context.Context, id uint64) (*model.Post, error)
	Update(ctx context.Context, id uint64, fields map[string]interface{}) error
	// Delete 删除 post 及其评论、评论点赞、点赞与收藏
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error)
	ListByAuthor(ctx context.Context, authorID uint64) ([]*model.Post, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]*model.Post, error)
	ListLikedBy(ctx context.Context, userID uint64) ([]*model.Post, error)
	ListBookmarkedBy(ctx context.Context, userID uint64, offset, limit int) ([]*model.Post, error)
	TopByLikes(ctx context.Context, limit int) ([]LikeRank, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint64) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) LockByID(ctx context.Context, id uint64) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, id uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint64) error {
	db := r.db.WithContext(ctx)
	commentIDs := db.Model(&model.Comment{}).Select("id").Where("post_id = ?", id)
	if err := db.Where("comment_id IN (?)", commentIDs).Delete(&model.CommentLike{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&model.PostLike{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&model.Bookmark{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 用户输入按字面匹配：% 与 _ 不作通配符
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func (r *postRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error) {
	offset, limit = normalizePage(offset, limit)
	q := r.db.WithContext(ctx).Model(&model.Post{}).Select("posts.*")
	if s := strings.TrimSpace(f.Search); s != "" {
		like := containsPattern(s)
		q = q.Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\' OR LOWER(posts.tags) LIKE ? ESCAPE '\'`, like, like, like)
	}
	if f.Category != "" {
		q = q.Where("posts.category = ?", f.Category)
	}
	if f.Tag != "" {
		q = q.Where(`LOWER(posts.tags) LIKE ? ESCAPE '\'`, containsPattern(f.Tag))
	}
	if f.Author != "" {
		q = q.Joins("JOIN users ON users.id = posts.author_id").Where("users.username = ?", f.Author)
	}
	var res []*model.Post
	err := q.Preload("Author").
		Order("posts.created_at DESC, posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint64) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&res).Error
	return res, err
}

// ListByIDs 结果顺序与 ids 一致，不存在的 id 被跳过
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint64) ([]*model.Post, error) {
	if len(ids) == 0 {
		return []*model.Post{}, nil
	}
	var rows []*model.Post
	if err := r.db.WithContext(ctx).Preload("Author").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.Post, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	res := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID uint64) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("posts.*").
		Joins("JOIN post_likes ON post_likes.post_id = posts.id").
		Where("post_likes.user_id = ?", userID).
		Preload("Author").
		Order("post_likes.created_at DESC, posts.id DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) ListBookmarkedBy(ctx context.Context, userID uint64, offset, limit int) ([]*model.Post, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("posts.*").
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID).
		Preload("Author").
		Order("bookmarks.created_at DESC, posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

// TopByLikes 以 post_likes 实时计数排序，同票数按创建时间倒序
func (r *postRepository) TopByLikes(ctx context.Context, limit int) ([]LikeRank, error) {
	if limit <= 0 {
		limit = 10
	}
	var res []LikeRank
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("posts.id AS post_id, COUNT(post_likes.user_id) AS like_count").
		Joins("LEFT JOIN post_likes ON post_likes.post_id = posts.id").
		Group("posts.id").
		Order("like_count DESC, posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Scan(&res).Error
	return res, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&cnt).Error
	return cnt, err
}
