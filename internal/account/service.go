// Package account 实现账号生命周期状态机：
// 注册 → 邮箱 OTP 验证 → 登录签发 JWT，以及找回密码子流程和
// 技能/教育/工作经历等档案操作。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SanjitSai/AspireTest/internal/model"
	"github.com/SanjitSai/AspireTest/internal/pkg/mailqueue"
	"github.com/SanjitSai/AspireTest/internal/pkg/metrics"
	"github.com/SanjitSai/AspireTest/internal/pkg/notify"
	"github.com/SanjitSai/AspireTest/internal/pkg/otp"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Store 定义账号与技能目录的持久化契约。
//
// 查询方法在记录不存在时返回 (nil, nil)，由服务层映射为 ErrNotFound。
type Store interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByUsernameOrEmail 按用户名或邮箱任一字段匹配。
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	FindByOTP(ctx context.Context, code string) (*model.User, error)
	// FindBySkills 返回持有任一给定技能（精确匹配）的账号。
	FindBySkills(ctx context.Context, skills []string) ([]*model.User, error)
	Insert(ctx context.Context, user *model.User) error
	// Save 整条覆盖写回一个已变更的账号。
	Save(ctx context.Context, user *model.User) error

	LoadCatalog(ctx context.Context) (*model.SkillCatalog, error)
	SaveCatalog(ctx context.Context, catalog *model.SkillCatalog) error
}

// MailEnqueuer 是邮件投递队列的最小接口。
type MailEnqueuer interface {
	Enqueue(msg mailqueue.Message) bool
}

// CatalogCache 缓存预定义技能目录。
type CatalogCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, skills []string) error
	Invalidate(ctx context.Context) error
}

// Service 实现账号状态机。
//
// 同一账号的读改写通过按用户名分键的互斥锁串行化，
// 避免并发档案修改互相覆盖。
type Service struct {
	store     Store
	mail      MailEnqueuer
	cache     CatalogCache
	logger    *slog.Logger
	jwtSecret []byte
	tokenTTL  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService 创建账号服务。
func NewService(store Store, mail MailEnqueuer, cache CatalogCache, logger *slog.Logger, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:     store,
		mail:      mail,
		cache:     cache,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockUser 返回该用户名对应的互斥锁（惰性创建）。
func (s *Service) lockUser(username string) func() {
	s.mu.Lock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	Email       string `json:"email"`
	CollegeName string `json:"collegeName"`
	Role        string `json:"role"`
}

// RegisterInput 注册请求字段。
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	CollegeName     string
	FirstName       string
	LastName        string
}

// Register 注册新账号。
//
// 校验两次密码一致，检查用户名/邮箱唯一性，生成 25 位 OTP，
// 以未验证状态落库，并异步发送 OTP 邮件（发送失败只记日志）。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if username == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%w: password and confirm password do not match", ErrValidation)
	}

	unlock := s.lockUser(username)
	defer unlock()

	if existing, err := s.store.FindByUsernameOrEmail(ctx, username); err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: username or email already exists", ErrConflict)
	}
	if existing, err := s.store.FindByUsernameOrEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: username or email already exists", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	user := &model.User{
		Username:    username,
		Email:       email,
		Password:    string(hash),
		CollegeName: strings.TrimSpace(in.CollegeName),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Role:        "user",
		OTP:         code,
		Verified:    false,
		IsBanned:    false,
		ResetState:  model.ResetStateNone,
		AuthToken:   "",
		Skills:      []string{},
	}

	if err := s.store.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	s.dispatchOTPMail(user.Email, "Registration OTP", "registration", code)

	s.logger.Info("user registered", slog.String("username", username), slog.String("email", email))
	return user, nil
}

// Verify 用注册 OTP 确认邮箱。
//
// OTP 一次性有效：确认成功后即被清除。
func (s *Service) Verify(ctx context.Context, code string) (*model.User, error) {
	user, err := s.store.FindByOTP(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	unlock := s.lockUser(user.Username)
	defer unlock()

	user.Verified = true
	user.OTP = ""
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	metrics.VerificationsTotal.Inc()
	s.logger.Info("user verified", slog.String("username", user.Username))
	return user, nil
}

// Login 校验凭据并签发 JWT。
//
// 失败顺序: 用户不存在 → 密码不匹配 → 已封禁 → 未验证。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		metrics.LoginFailuresTotal.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.LoginFailuresTotal.WithLabelValues("bad_password").Inc()
		return "", fmt.Errorf("%w: invalid password", ErrInvalidCredential)
	}
	if user.IsBanned {
		metrics.LoginFailuresTotal.WithLabelValues("banned").Inc()
		return "", fmt.Errorf("%w", ErrBanned)
	}
	if !user.Verified {
		metrics.LoginFailuresTotal.WithLabelValues("not_verified").Inc()
		return "", fmt.Errorf("%w", ErrNotVerified)
	}

	token, err := s.signToken(user)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	user.AuthToken = token
	if err := s.store.Save(ctx, user); err != nil {
		return "", fmt.Errorf("save user: %w", err)
	}

	metrics.LoginsTotal.Inc()
	s.logger.Info("user logged in", slog.String("username", username))
	return token, nil
}

// ForgotPassword 发起找回密码：轮换 OTP 并异步发送邮件。
func (s *Service) ForgotPassword(ctx context.Context, identifier string) (*model.User, error) {
	user, err := s.store.FindByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	unlock := s.lockUser(user.Username)
	defer unlock()

	code, err := otp.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	user.OTP = code
	user.ResetState = model.ResetStatePending
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.dispatchOTPMail(user.Email, "Password Reset OTP", "password reset", code)

	s.logger.Info("password reset otp issued", slog.String("username", user.Username))
	return user, nil
}

// VerifyForgotPassword 确认找回密码的 OTP。
//
// 仅在找回流程已发起（pending）时允许确认；成功后 OTP 作废，
// 状态转为 confirmed，ResetPassword 才会接受改密。
func (s *Service) VerifyForgotPassword(ctx context.Context, code string) (*model.User, error) {
	user, err := s.store.FindByOTP(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	unlock := s.lockUser(user.Username)
	defer unlock()

	if user.ResetState != model.ResetStatePending {
		return nil, fmt.Errorf("%w: no password reset pending", ErrInvalidOTPState)
	}

	user.ResetState = model.ResetStateConfirmed
	user.OTP = ""
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("password reset otp confirmed", slog.String("username", user.Username))
	return user, nil
}

// ResetPassword 在 OTP 已确认的前提下用新密码替换旧密码。
func (s *Service) ResetPassword(ctx context.Context, username, existingPassword, newPassword string) (*model.User, error) {
	if newPassword == "" {
		return nil, fmt.Errorf("%w: new password is required", ErrValidation)
	}

	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if user.ResetState != model.ResetStateConfirmed {
		return nil, fmt.Errorf("%w: password reset not confirmed", ErrInvalidOTPState)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(existingPassword)); err != nil {
		return nil, fmt.Errorf("%w: invalid existing password", ErrInvalidCredential)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user.Password = string(hash)
	user.ResetState = model.ResetStateNone
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	metrics.PasswordResetsTotal.Inc()
	s.logger.Info("password reset", slog.String("username", username))
	return user, nil
}

// AddSkill 向账号追加一个技能。
//
// 先去空格、忽略大小写去重；不在预定义目录中的技能会进入
// 目录的待审核列表，供管理员合并。
func (s *Service) AddSkill(ctx context.Context, username, skill string) ([]string, error) {
	trimmed := strings.TrimSpace(skill)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: skill is required", ErrValidation)
	}

	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.authedUser(ctx, username)
	if err != nil {
		return nil, err
	}

	for _, existing := range user.Skills {
		if strings.EqualFold(strings.TrimSpace(existing), trimmed) {
			return nil, fmt.Errorf("%w: skill already exists", ErrConflict)
		}
	}

	user.Skills = append(user.Skills, trimmed)
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	if err := s.proposeSkill(ctx, trimmed); err != nil {
		// 目录是辅助数据，提议失败不影响本次操作
		s.logger.Warn("propose skill failed", slog.String("skill", trimmed), slog.String("error", err.Error()))
	}

	return user.Skills, nil
}

// DeleteSkill 从账号移除一个技能（精确匹配，移除第一个命中）。
func (s *Service) DeleteSkill(ctx context.Context, username, skill string) ([]string, error) {
	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.authedUser(ctx, username)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, existing := range user.Skills {
		if existing == skill {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: skill not found", ErrNotFound)
	}

	user.Skills = append(user.Skills[:idx], user.Skills[idx+1:]...)
	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	return user.Skills, nil
}

// UpsertEducation 新增或更新一条教育经历。
//
// 以 院校名称+专业 作为匹配键：命中则原位更新，否则追加。
func (s *Service) UpsertEducation(ctx context.Context, username string, entry model.Education) (*model.User, error) {
	if strings.TrimSpace(entry.UniversityName) == "" {
		return nil, fmt.Errorf("%w: universityName is required", ErrValidation)
	}

	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.authedUser(ctx, username)
	if err != nil {
		return nil, err
	}

	updated := false
	for i := range user.Education {
		if strings.EqualFold(user.Education[i].UniversityName, entry.UniversityName) &&
			strings.EqualFold(user.Education[i].Branch, entry.Branch) {
			entry.ID = user.Education[i].ID
			entry.UserID = user.ID
			user.Education[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		entry.UserID = user.ID
		user.Education = append(user.Education, entry)
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// UpsertWorkExperience 新增或更新一条工作经历（按条目 id 匹配）。
func (s *Service) UpsertWorkExperience(ctx context.Context, username string, entry model.WorkExperience) (*model.User, error) {
	if strings.TrimSpace(entry.CompanyName) == "" {
		return nil, fmt.Errorf("%w: companyName is required", ErrValidation)
	}

	unlock := s.lockUser(username)
	defer unlock()

	user, err := s.authedUser(ctx, username)
	if err != nil {
		return nil, err
	}

	updated := false
	for i := range user.WorkExperiences {
		if user.WorkExperiences[i].EntryID == entry.EntryID {
			entry.ID = user.WorkExperiences[i].ID
			entry.UserID = user.ID
			user.WorkExperiences[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		entry.UserID = user.ID
		user.WorkExperiences = append(user.WorkExperiences, entry)
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// PredefinedSkills 返回全局预定义技能目录（带 Redis 缓存）。
func (s *Service) PredefinedSkills(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if skills, ok, err := s.cache.Get(ctx); err != nil {
			s.logger.Warn("skill cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return skills, nil
		}
	}

	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalog.Predefined); err != nil {
			s.logger.Warn("skill cache write failed", slog.String("error", err.Error()))
		}
	}
	return catalog.Predefined, nil
}

// CurateSkills 管理员操作：从目录和所有持有者账号中移除无效技能，
// 并清空待审核列表。
func (s *Service) CurateSkills(ctx context.Context, invalidSkills []string) error {
	if len(invalidSkills) == 0 {
		return fmt.Errorf("%w: no skills given", ErrValidation)
	}

	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	catalog.Predefined = removeSkills(catalog.Predefined, invalidSkills)
	catalog.Proposed = nil
	if err := s.store.SaveCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	holders, err := s.store.FindBySkills(ctx, invalidSkills)
	if err != nil {
		return fmt.Errorf("query skill holders: %w", err)
	}
	for _, holder := range holders {
		unlock := s.lockUser(holder.Username)
		holder.Skills = removeSkills(holder.Skills, invalidSkills)
		err := s.store.Save(ctx, holder)
		unlock()
		if err != nil {
			return fmt.Errorf("save user %s: %w", holder.Username, err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("skill cache invalidate failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("skills curated",
		slog.Int("removed", len(invalidSkills)),
		slog.Int("accounts_touched", len(holders)))
	return nil
}

// MergeProposedSkills 管理员操作：把新技能并入预定义目录。
func (s *Service) MergeProposedSkills(ctx context.Context, newSkills []string) error {
	if len(newSkills) == 0 {
		return fmt.Errorf("%w: no skills given", ErrValidation)
	}

	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	for _, skill := range newSkills {
		trimmed := strings.TrimSpace(skill)
		if trimmed == "" {
			continue
		}
		if !containsFold(catalog.Predefined, trimmed) {
			catalog.Predefined = append(catalog.Predefined, trimmed)
		}
	}
	catalog.Proposed = removeSkills(catalog.Proposed, newSkills)

	if err := s.store.SaveCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("skill cache invalidate failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("skills merged into catalog", slog.Int("count", len(newSkills)))
	return nil
}

// authedUser 取回账号并做"已登录"校验。
//
// 账号不存在或从未签发过令牌都按未找到处理（与对外表现一致，
// 不暴露账号是否存在）。
func (s *Service) authedUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if user.AuthToken == "" {
		return nil, fmt.Errorf("%w: invalid user", ErrNotFound)
	}
	return user, nil
}

// proposeSkill 把目录之外的技能记入待审核列表。
func (s *Service) proposeSkill(ctx context.Context, skill string) error {
	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if containsFold(catalog.Predefined, skill) || containsFold(catalog.Proposed, skill) {
		return nil
	}
	catalog.Proposed = append(catalog.Proposed, skill)
	return s.store.SaveCatalog(ctx, catalog)
}

// dispatchOTPMail 非阻塞投递 OTP 邮件，队列满也不影响请求结果。
func (s *Service) dispatchOTPMail(to, subject, purpose, code string) {
	if s.mail == nil {
		return
	}
	ok := s.mail.Enqueue(mailqueue.Message{
		To:      to,
		Subject: subject,
		Body:    notify.OTPBody(purpose, code),
	})
	if ok {
		metrics.EmailsEnqueuedTotal.Inc()
	} else {
		metrics.EmailsDroppedTotal.Inc()
	}
}

func (s *Service) signToken(user *model.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username:    user.Username,
		Email:       user.Email,
		CollegeName: user.CollegeName,
		Role:        user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func containsFold(list []string, skill string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), skill) {
			return true
		}
	}
	return false
}

func removeSkills(list []string, toRemove []string) []string {
	kept := make([]string, 0, len(list))
	for _, item := range list {
		removed := false
		for _, candidate := range toRemove {
			if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(candidate)) {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, item)
		}
	}
	return kept
}
