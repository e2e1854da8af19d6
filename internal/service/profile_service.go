package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
)

// Profile 用户资料，附带其文章和评论
type Profile struct {
	UserView
	Posts    []PostView    `json:"posts"`
	Comments []CommentView `json:"comments"`
}

type UpdateProfileInput struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=150"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=512"`
}

type ProfileService interface {
	Me(ctx context.Context, caller identity.Identity) (*Profile, error)
	UpdateMe(ctx context.Context, caller identity.Identity, in UpdateProfileInput) (*Profile, error)
	// SetOwnRole 自助降级：Author 可以退回 Guest；升为 Author 只能由管理员授予
	SetOwnRole(ctx context.Context, caller identity.Identity, role string) (*UserView, error)
	PublicProfile(ctx context.Context, viewer identity.Identity, userID uint64) (*Profile, error)
	ListUsers(ctx context.Context, caller identity.Identity, page, pageSize int) ([]UserView, error)
	UpdateRole(ctx context.Context, caller identity.Identity, userID uint64, role string) (*UserView, error)
}

type profileService struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	present  presenter
}

func NewProfileService(
	db *gorm.DB,
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	eng repository.EngagementRepository,
) ProfileService {
	return &profileService{db: db, users: users, posts: posts, comments: comments, present: presenter{eng: eng}}
}

// withTx 所有读写都落在同一个事务连接上（主库）
func (s *profileService) withTx(tx *gorm.DB) *profileService {
	return &profileService{
		db:       tx,
		users:    s.users.WithTx(tx),
		posts:    s.posts.WithTx(tx),
		comments: s.comments.WithTx(tx),
		present:  s.present.withTx(tx),
	}
}

func (s *profileService) Me(ctx context.Context, caller identity.Identity) (*Profile, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	return s.profile(ctx, caller, caller.UserID, true)
}

func (s *profileService) UpdateMe(ctx context.Context, caller identity.Identity, in UpdateProfileInput) (*Profile, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, apperr.Validation("username: may not be blank")
		}
		taken, err := s.users.ExistsUsername(ctx, name, caller.UserID)
		if err != nil {
			return nil, storeErr(err, "")
		}
		if taken {
			return nil, apperr.Conflict("username already taken")
		}
		fields["username"] = name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = *in.AvatarURL
	}
	var p *Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts := s.withTx(tx)
		if err := ts.users.UpdateProfile(ctx, caller.UserID, fields); err != nil {
			if repository.IsDuplicate(err) {
				return apperr.Conflict("username already taken")
			}
			return storeErr(err, "user not found")
		}
		var err error
		p, err = ts.profile(ctx, caller, caller.UserID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *profileService) SetOwnRole(ctx context.Context, caller identity.Identity, role string) (*UserView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	r, err := identity.ParseAssignableRole(role)
	if err != nil {
		return nil, err
	}
	var v *UserView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 以库里的角色为准，token 里的角色可能已过期
		u, err := s.users.WithTx(tx).GetByID(ctx, caller.UserID)
		if err != nil {
			return storeErr(err, "user not found")
		}
		switch {
		case u.Role == model.RoleAdmin:
			return apperr.Forbidden("admins cannot change their own role")
		case r == model.RoleAuthor && u.Role != model.RoleAuthor:
			return apperr.Forbidden("only an admin can grant the Author role")
		}
		v, err = s.withTx(tx).setRole(ctx, caller.UserID, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *profileService) PublicProfile(ctx context.Context, viewer identity.Identity, userID uint64) (*Profile, error) {
	return s.profile(ctx, viewer, userID, false)
}

func (s *profileService) ListUsers(ctx context.Context, caller identity.Identity, page, pageSize int) ([]UserView, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	offset, limit := pageOffset(page, pageSize)
	rows, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	res := make([]UserView, len(rows))
	for i, u := range rows {
		res[i] = newUserView(u, true)
	}
	return res, nil
}

// UpdateRole 管理员修改他人角色；Admin 不能通过接口授予
func (s *profileService) UpdateRole(ctx context.Context, caller identity.Identity, userID uint64, role string) (*UserView, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	r, err := identity.ParseAssignableRole(role)
	if err != nil {
		return nil, err
	}
	var v *UserView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = s.withTx(tx).setRole(ctx, userID, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *profileService) setRole(ctx context.Context, userID uint64, r model.Role) (*UserView, error) {
	if err := s.users.UpdateRole(ctx, userID, r); err != nil {
		return nil, storeErr(err, "user not found")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	v := newUserView(u, true)
	return &v, nil
}

func (s *profileService) profile(ctx context.Context, viewer identity.Identity, userID uint64, withEmail bool) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	posts, err := s.posts.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	comments, err := s.comments.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	pv, err := s.present.posts(ctx, posts, viewer.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	cv, err := s.present.comments(ctx, comments, viewer.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return &Profile{UserView: newUserView(u, withEmail), Posts: pv, Comments: cv}, nil
}
