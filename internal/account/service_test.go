package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SanjitSai/AspireTest/internal/model"
	"github.com/SanjitSai/AspireTest/internal/pkg/mailqueue"
	"github.com/SanjitSai/AspireTest/internal/pkg/metrics"
	"github.com/SanjitSai/AspireTest/internal/pkg/otp"

	"golang.org/x/crypto/bcrypt"
)

// memStore 是 Store 的内存实现，仅用于测试。
type memStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	catalog model.SkillCatalog
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Skills = append([]string(nil), u.Skills...)
	c.Education = append([]model.Education(nil), u.Education...)
	c.WorkExperiences = append([]model.WorkExperience(nil), u.WorkExperiences...)
	return &c
}

func (m *memStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (m *memStore) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByOTP(ctx context.Context, code string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code == "" {
		return nil, nil
	}
	for _, u := range m.users {
		if u.OTP == code {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindBySkills(ctx context.Context, skills []string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		for _, have := range u.Skills {
			match := false
			for _, want := range skills {
				if have == want {
					match = true
					break
				}
			}
			if match {
				out = append(out, cloneUser(u))
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) Insert(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uint(len(m.users) + 1)
	m.users[user.Username] = cloneUser(user)
	return nil
}

func (m *memStore) Save(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = cloneUser(user)
	return nil
}

func (m *memStore) LoadCatalog(ctx context.Context) (*model.SkillCatalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.catalog
	c.Predefined = append([]string(nil), m.catalog.Predefined...)
	c.Proposed = append([]string(nil), m.catalog.Proposed...)
	return &c, nil
}

func (m *memStore) SaveCatalog(ctx context.Context, catalog *model.SkillCatalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = *catalog
	return nil
}

// stored 直接读取底层记录，绕过拷贝。
func (m *memStore) stored(username string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[username]
}

type mockMail struct {
	mu       sync.Mutex
	messages []mailqueue.Message
}

func (m *mockMail) Enqueue(msg mailqueue.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return true
}

func (m *mockMail) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func newTestService(store Store, mail MailEnqueuer) *Service {
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, mail, nil, logger, "test_secret", time.Hour)
}

func registerInput(username, email string) RegisterInput {
	return RegisterInput{
		Username:        username,
		Password:        "secret123",
		ConfirmPassword: "secret123",
		Email:           email,
		CollegeName:     "IIT Delhi",
		FirstName:       "Asha",
		LastName:        "Rao",
	}
}

func TestRegister_Normal(t *testing.T) {
	store := newMemStore()
	mail := &mockMail{}
	svc := newTestService(store, mail)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Verified {
		t.Fatalf("expected new user to be unverified")
	}
	if user.IsBanned {
		t.Fatalf("expected new user to be unbanned")
	}
	if len(user.OTP) != otp.Length {
		t.Fatalf("expected %d-char otp, got %d", otp.Length, len(user.OTP))
	}
	if user.Password == "secret123" {
		t.Fatalf("password must not be stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if mail.count() != 1 {
		t.Fatalf("expected 1 otp mail enqueued, got %d", mail.count())
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	in := registerInput("asha", "asha@example.com")
	in.ConfirmPassword = "different"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.stored("asha") != nil {
		t.Fatalf("expected no record created on validation failure")
	}
}

func TestRegister_DuplicateUsernameAndEmail(t *testing.T) {
	store := newMemStore()
	mail := &mockMail{}
	svc := newTestService(store, mail)
	ctx := context.Background()

	first, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	// 相同用户名
	if _, err := svc.Register(ctx, registerInput("asha", "other@example.com")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate username, got %v", err)
	}
	// 相同邮箱
	if _, err := svc.Register(ctx, registerInput("other", "asha@example.com")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	got := store.stored("asha")
	if got == nil || got.Email != first.Email || got.OTP != first.OTP {
		t.Fatalf("first account must be unaffected by failed duplicates")
	}
}

func TestVerify_OTPFlow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// 错误的 OTP 不改变状态
	if _, err := svc.Verify(ctx, "wrong-otp"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong otp, got %v", err)
	}
	if store.stored("asha").Verified {
		t.Fatalf("wrong otp must not flip verified")
	}

	verified, err := svc.Verify(ctx, user.OTP)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified {
		t.Fatalf("expected verified=true")
	}
	if verified.OTP != "" {
		t.Fatalf("otp must be single-use, got %q after verify", verified.OTP)
	}

	// 同一 OTP 不能重放
	if _, err := svc.Verify(ctx, user.OTP); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on otp replay, got %v", err)
	}
}

func TestLogin_Gating(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, "asha", "wrongpass"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}

	// 未验证时即使密码正确也拒绝
	if _, err := svc.Login(ctx, "asha", "secret123"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	if _, err := svc.Verify(ctx, user.OTP); err != nil {
		t.Fatalf("verify: %v", err)
	}

	token, err := svc.Login(ctx, "asha", "secret123")
	if err != nil {
		t.Fatalf("login after verify: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if store.stored("asha").AuthToken != token {
		t.Fatalf("expected token persisted on account")
	}
}

func TestLogin_Banned(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Verify(ctx, user.OTP); err != nil {
		t.Fatalf("verify: %v", err)
	}

	banned := store.stored("asha")
	banned.IsBanned = true

	if _, err := svc.Login(ctx, "asha", "secret123"); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned regardless of correct password, got %v", err)
	}
}

func TestForgotPassword_RotatesOTP(t *testing.T) {
	store := newMemStore()
	mail := &mockMail{}
	svc := newTestService(store, mail)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	oldOTP := user.OTP

	// 用邮箱作为标识符也要能命中
	after, err := svc.ForgotPassword(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if len(after.OTP) != otp.Length {
		t.Fatalf("expected %d-char otp, got %d", otp.Length, len(after.OTP))
	}
	if after.OTP == oldOTP {
		t.Fatalf("expected otp to rotate")
	}
	if after.ResetState != model.ResetStatePending {
		t.Fatalf("expected reset state pending, got %q", after.ResetState)
	}
	if mail.count() != 2 {
		t.Fatalf("expected registration + reset mails, got %d", mail.count())
	}

	if _, err := svc.ForgotPassword(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identifier, got %v", err)
	}
}

func TestResetPassword_Flow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput("asha", "asha@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 未确认 OTP 前禁止改密
	if _, err := svc.ResetPassword(ctx, "asha", "secret123", "newpass456"); !errors.Is(err, ErrInvalidOTPState) {
		t.Fatalf("expected ErrInvalidOTPState before confirmation, got %v", err)
	}

	pending, err := svc.ForgotPassword(ctx, "asha")
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	confirmed, err := svc.VerifyForgotPassword(ctx, pending.OTP)
	if err != nil {
		t.Fatalf("verify forgot password: %v", err)
	}
	if confirmed.ResetState != model.ResetStateConfirmed {
		t.Fatalf("expected confirmed state, got %q", confirmed.ResetState)
	}
	if confirmed.OTP != "" {
		t.Fatalf("reset otp must be single-use")
	}

	// 旧密码校验仍然生效
	if _, err := svc.ResetPassword(ctx, "asha", "wrongpass", "newpass456"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}

	reset, err := svc.ResetPassword(ctx, "asha", "secret123", "newpass456")
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if reset.ResetState != model.ResetStateNone {
		t.Fatalf("expected reset state cleared, got %q", reset.ResetState)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reset.Password), []byte("newpass456")); err != nil {
		t.Fatalf("new password not applied: %v", err)
	}

	// 状态已清空，不能重复改密
	if _, err := svc.ResetPassword(ctx, "asha", "newpass456", "another789"); !errors.Is(err, ErrInvalidOTPState) {
		t.Fatalf("expected ErrInvalidOTPState after state cleared, got %v", err)
	}
}

func TestVerifyForgotPassword_RequiresPending(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("asha", "asha@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// 注册 OTP 不能用来确认找回流程
	if _, err := svc.VerifyForgotPassword(ctx, user.OTP); !errors.Is(err, ErrInvalidOTPState) {
		t.Fatalf("expected ErrInvalidOTPState for registration otp, got %v", err)
	}
}

func loggedInUser(t *testing.T, svc *Service, store *memStore, username, email string) {
	t.Helper()
	ctx := context.Background()
	user, err := svc.Register(ctx, registerInput(username, email))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Verify(ctx, user.OTP); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := svc.Login(ctx, username, "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestAddSkill_CaseInsensitiveDuplicate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()
	loggedInUser(t, svc, store, "asha", "asha@example.com")

	skills, err := svc.AddSkill(ctx, "asha", "Go")
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if len(skills) != 1 || skills[0] != "Go" {
		t.Fatalf("unexpected skills after add: %v", skills)
	}

	if _, err := svc.AddSkill(ctx, "asha", "go"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for case-insensitive duplicate, got %v", err)
	}
	if _, err := svc.AddSkill(ctx, "asha", "  GO  "); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for trimmed duplicate, got %v", err)
	}

	if got := store.stored("asha").Skills; len(got) != 1 {
		t.Fatalf("expected exactly one skill, got %v", got)
	}
}

func TestAddSkill_RequiresSession(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	// 注册但从未登录，authToken 为空
	if _, err := svc.Register(ctx, registerInput("asha", "asha@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.AddSkill(ctx, "asha", "Go"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty session token, got %v", err)
	}
	if _, err := svc.AddSkill(ctx, "nobody", "Go"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestAddSkill_ProposesUnknownSkill(t *testing.T) {
	store := newMemStore()
	store.catalog.Predefined = []string{"SQL"}
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()
	loggedInUser(t, svc, store, "asha", "asha@example.com")

	if _, err := svc.AddSkill(ctx, "asha", "Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	catalog, err := store.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(catalog.Proposed) != 1 || catalog.Proposed[0] != "Go" {
		t.Fatalf("expected Go proposed for catalog, got %v", catalog.Proposed)
	}

	// 目录内技能不再进入待审核列表
	if _, err := svc.AddSkill(ctx, "asha", "SQL"); err != nil {
		t.Fatalf("add catalog skill: %v", err)
	}
	catalog, _ = store.LoadCatalog(ctx)
	if len(catalog.Proposed) != 1 {
		t.Fatalf("expected proposed list unchanged, got %v", catalog.Proposed)
	}
}

func TestDeleteSkill(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()
	loggedInUser(t, svc, store, "asha", "asha@example.com")

	if _, err := svc.AddSkill(ctx, "asha", "Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if _, err := svc.AddSkill(ctx, "asha", "SQL"); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	if _, err := svc.DeleteSkill(ctx, "asha", "Rust"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent skill, got %v", err)
	}

	// 删除是精确匹配，大小写不同不命中
	if _, err := svc.DeleteSkill(ctx, "asha", "go"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected exact-match delete to miss, got %v", err)
	}

	skills, err := svc.DeleteSkill(ctx, "asha", "Go")
	if err != nil {
		t.Fatalf("delete skill: %v", err)
	}
	if len(skills) != 1 || skills[0] != "SQL" {
		t.Fatalf("expected [SQL] after delete, got %v", skills)
	}
}

func TestUpsertEducation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()
	loggedInUser(t, svc, store, "asha", "asha@example.com")

	entry := model.Education{
		UniversityName: "IIT Delhi",
		Branch:         "CSE",
		StartDate:      "2019-08",
		EndDate:        "2023-05",
	}
	user, err := svc.UpsertEducation(ctx, "asha", entry)
	if err != nil {
		t.Fatalf("add education: %v", err)
	}
	if len(user.Education) != 1 {
		t.Fatalf("expected 1 education entry, got %d", len(user.Education))
	}

	entry.EndDate = "2023-07"
	user, err = svc.UpsertEducation(ctx, "asha", entry)
	if err != nil {
		t.Fatalf("update education: %v", err)
	}
	if len(user.Education) != 1 || user.Education[0].EndDate != "2023-07" {
		t.Fatalf("expected in-place update, got %+v", user.Education)
	}

	other := model.Education{UniversityName: "IIT Bombay", Branch: "EE"}
	user, err = svc.UpsertEducation(ctx, "asha", other)
	if err != nil {
		t.Fatalf("add second education: %v", err)
	}
	if len(user.Education) != 2 {
		t.Fatalf("expected 2 education entries, got %d", len(user.Education))
	}
}

func TestUpsertWorkExperience_KeyedByEntryID(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()
	loggedInUser(t, svc, store, "asha", "asha@example.com")

	entry := model.WorkExperience{
		EntryID:     1,
		CompanyName: "Infosys",
		Position:    "SDE",
		StartDate:   "2023-07",
	}
	user, err := svc.UpsertWorkExperience(ctx, "asha", entry)
	if err != nil {
		t.Fatalf("add work: %v", err)
	}
	if len(user.WorkExperiences) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(user.WorkExperiences))
	}

	entry.Position = "Senior SDE"
	user, err = svc.UpsertWorkExperience(ctx, "asha", entry)
	if err != nil {
		t.Fatalf("update work: %v", err)
	}
	if len(user.WorkExperiences) != 1 || user.WorkExperiences[0].Position != "Senior SDE" {
		t.Fatalf("expected keyed update, got %+v", user.WorkExperiences)
	}

	entry.EntryID = 2
	entry.CompanyName = "TCS"
	user, err = svc.UpsertWorkExperience(ctx, "asha", entry)
	if err != nil {
		t.Fatalf("add second work: %v", err)
	}
	if len(user.WorkExperiences) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(user.WorkExperiences))
	}
}

func TestCurateSkills(t *testing.T) {
	store := newMemStore()
	store.catalog.Predefined = []string{"Go", "Flash", "SQL"}
	store.catalog.Proposed = []string{"Cobol"}
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	loggedInUser(t, svc, store, "asha", "asha@example.com")
	loggedInUser(t, svc, store, "ravi", "ravi@example.com")
	if _, err := svc.AddSkill(ctx, "asha", "Flash"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if _, err := svc.AddSkill(ctx, "asha", "Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if _, err := svc.AddSkill(ctx, "ravi", "Flash"); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	if err := svc.CurateSkills(ctx, []string{"Flash"}); err != nil {
		t.Fatalf("curate skills: %v", err)
	}

	catalog, _ := store.LoadCatalog(ctx)
	if len(catalog.Predefined) != 2 || containsFold(catalog.Predefined, "Flash") {
		t.Fatalf("expected Flash removed from catalog, got %v", catalog.Predefined)
	}
	if len(catalog.Proposed) != 0 {
		t.Fatalf("expected proposed list cleared, got %v", catalog.Proposed)
	}
	for _, username := range []string{"asha", "ravi"} {
		for _, skill := range store.stored(username).Skills {
			if strings.EqualFold(skill, "Flash") {
				t.Fatalf("expected Flash removed from %s", username)
			}
		}
	}
	if got := store.stored("asha").Skills; len(got) != 1 || got[0] != "Go" {
		t.Fatalf("unrelated skills must survive curation, got %v", got)
	}
}

func TestMergeProposedSkills(t *testing.T) {
	store := newMemStore()
	store.catalog.Predefined = []string{"Go"}
	store.catalog.Proposed = []string{"Rust", "Zig"}
	svc := newTestService(store, &mockMail{})
	ctx := context.Background()

	if err := svc.MergeProposedSkills(ctx, []string{"Rust", "go", ""}); err != nil {
		t.Fatalf("merge skills: %v", err)
	}

	catalog, _ := store.LoadCatalog(ctx)
	if len(catalog.Predefined) != 2 {
		t.Fatalf("expected [Go Rust], got %v", catalog.Predefined)
	}
	if !containsFold(catalog.Predefined, "Rust") {
		t.Fatalf("expected Rust merged, got %v", catalog.Predefined)
	}
	// 已合并的技能离开待审核列表
	if len(catalog.Proposed) != 1 || catalog.Proposed[0] != "Zig" {
		t.Fatalf("expected [Zig] proposed, got %v", catalog.Proposed)
	}
}

type countingCache struct {
	mu     sync.Mutex
	skills []string
	hits   int
	sets   int
}

func (c *countingCache) Get(ctx context.Context) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.skills == nil {
		return nil, false, nil
	}
	c.hits++
	return c.skills, true, nil
}

func (c *countingCache) Set(ctx context.Context, skills []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.skills = skills
	return nil
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills = nil
	return nil
}

func TestPredefinedSkills_Cached(t *testing.T) {
	store := newMemStore()
	store.catalog.Predefined = []string{"Go", "SQL"}
	cache := &countingCache{}
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, &mockMail{}, cache, logger, "test_secret", time.Hour)
	ctx := context.Background()

	first, err := svc.PredefinedSkills(ctx)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 skills, got %v", first)
	}
	if cache.sets != 1 {
		t.Fatalf("expected cache fill on miss")
	}

	if _, err := svc.PredefinedSkills(ctx); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if cache.hits != 1 {
		t.Fatalf("expected cache hit on second read, got %d", cache.hits)
	}

	if err := svc.MergeProposedSkills(ctx, []string{"Rust"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	third, err := svc.PredefinedSkills(ctx)
	if err != nil {
		t.Fatalf("third read: %v", err)
	}
	if !containsFold(third, "Rust") {
		t.Fatalf("expected cache invalidated after merge, got %v", third)
	}
}
