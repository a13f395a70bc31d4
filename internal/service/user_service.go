package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tripbuddy/internal/core/auth"
	"tripbuddy/internal/core/cache"
	"tripbuddy/internal/domain"
	"tripbuddy/internal/validate"
	"tripbuddy/pkg/utils"
)

const userViewTTL = 5 * time.Minute

func userViewKey(id string) string { return "user:view:" + id }

// UserService 用户资源编排：查找、打补丁、校验、鉴权、落库
type UserService struct {
	repo   domain.UserRepository
	hasher domain.PasswordHasher
	val    *validate.Validator
	jwter  *auth.JWTer
	cache  *cache.Cache // 可为 nil（未配置 redis 时直连 DB）
	log    *zap.Logger
}

func NewUserService(repo domain.UserRepository, hasher domain.PasswordHasher, val *validate.Validator, jwter *auth.JWTer, c *cache.Cache, log *zap.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, val: val, jwter: jwter, cache: c, log: log}
}

// ProfilePatch 自助更新：只开放非敏感字段，nil 表示保持原值
type ProfilePatch struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
}

func (p ProfilePatch) Empty() bool {
	return p.Firstname == nil && p.Lastname == nil && p.Email == nil
}

// UserPatch 管理端更新，可动 roles 和密码
type UserPatch struct {
	Firstname *string       `json:"firstname"`
	Lastname  *string       `json:"lastname"`
	Email     *string       `json:"email"`
	Password  *string       `json:"password"`
	Roles     *domain.Roles `json:"roles"`
}

type CreateUserInput struct {
	Email     string       `json:"email"`
	Firstname string       `json:"firstname"`
	Lastname  string       `json:"lastname"`
	Password  string       `json:"password"`
	Roles     domain.Roles `json:"roles"`
}

func (in CreateUserInput) empty() bool {
	return in.Email == "" && in.Firstname == "" && in.Lastname == "" && in.Password == "" && len(in.Roles) == 0
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.UserView, error) {
	if s.cache == nil {
		return s.loadView(ctx, id)
	}
	return cache.GetOrLoadJSON[domain.UserView](s.cache, ctx, userViewKey(id), userViewTTL, func(ctx context.Context) (*domain.UserView, error) {
		return s.loadView(ctx, id)
	})
}

func (s *UserService) loadView(ctx context.Context, id string) (*domain.UserView, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u.View(), nil
}

func (s *UserService) Profile(ctx context.Context, uid string) (*domain.ProfileView, error) {
	u, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, patch ProfilePatch) error {
	if patch.Empty() {
		return domain.ErrBadRequest
	}
	u, err := s.find(ctx, uid)
	if err != nil {
		return err
	}
	if patch.Firstname != nil {
		u.Firstname = *patch.Firstname
	}
	if patch.Lastname != nil {
		u.Lastname = *patch.Lastname
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if res := s.val.Validate(u); !res.Valid() {
		// 校验失败不落库
		return &domain.ValidationError{Fields: validate.Collect(res)}
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("update profile %s: %w", uid, err)
	}
	s.evict(ctx, uid)
	return nil
}

func (s *UserService) DeleteAccount(ctx context.Context, uid, password string) error {
	u, err := s.find(ctx, uid)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := s.repo.Delete(ctx, u); err != nil {
		return fmt.Errorf("delete account %s: %w", uid, err)
	}
	s.evict(ctx, uid)
	s.log.Info("account deleted", zap.String("user_id", uid))
	return nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.UserView, error) {
	if in.empty() {
		return nil, domain.ErrBadRequest
	}
	u := &domain.User{
		ID:        utils.NewID(),
		Email:     in.Email,
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Roles:     in.Roles,
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if res := s.val.Validate(u); !res.Valid() {
		return nil, &domain.ValidationError{Fields: validate.Collect(res)}
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", zap.String("user_id", u.ID))
	return u.View(), nil
}

// AdminUpdate 按现有行为不重跑实体校验，补丁应用后直接提交
func (s *UserService) AdminUpdate(ctx context.Context, id string, patch UserPatch) error {
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Firstname != nil {
		u.Firstname = *patch.Firstname
	}
	if patch.Lastname != nil {
		u.Lastname = *patch.Lastname
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if patch.Roles != nil {
		u.Roles = *patch.Roles
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	s.evict(ctx, id)
	return nil
}

func (s *UserService) AdminDelete(ctx context.Context, id string, actor domain.Identity) error {
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if actor.ID != u.ID && !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, u); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	s.evict(ctx, id)
	s.log.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// Login 凭据校验 + 签发令牌；查无此人与密码错误同样返回 ErrInvalidCredentials
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user by email: %w", err)
	}
	if u == nil || !s.hasher.Verify(password, u.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}
	return s.jwter.Issue(u.ID, u.Roles)
}

func (s *UserService) find(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userViewKey(id)); err != nil {
		s.log.Warn("cache evict failed", zap.String("key", userViewKey(id)), zap.Error(err))
	}
}
