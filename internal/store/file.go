package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/SanjitSai/AspireTest/internal/model"
)

// fileDocument 是 JSON 文件的顶层结构。
//
// model.User 的 JSON 标签为对外响应设计（密码、OTP 等字段被隐藏），
// 落盘时用 fileUser 重新映射，保证全部字段可持久化。
type fileDocument struct {
	Users   []fileUser  `json:"users"`
	Catalog fileCatalog `json:"catalog"`
	NextID  uint        `json:"next_id"`
}

type fileUser struct {
	ID          uint             `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	CollegeName string           `json:"college_name"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Role        string           `json:"role"`
	OTP         string           `json:"otp"`
	Verified    bool             `json:"verified"`
	IsBanned    bool             `json:"is_banned"`
	ResetState  model.ResetState `json:"reset_state"`
	AuthToken   string           `json:"auth_token"`
	Skills      []string         `json:"skills"`
	Education   []fileEducation  `json:"education"`
	Work        []fileWork       `json:"work_experiences"`
}

type fileEducation struct {
	UniversityName string `json:"university_name"`
	Branch         string `json:"branch"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

type fileWork struct {
	EntryID     int    `json:"id"`
	CompanyName string `json:"company_name"`
	Position    string `json:"position"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type fileCatalog struct {
	Predefined []string `json:"predefined"`
	Proposed   []string `json:"proposed"`
}

func toFileUser(u *model.User) fileUser {
	f := fileUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Password:    u.Password,
		CollegeName: u.CollegeName,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		OTP:         u.OTP,
		Verified:    u.Verified,
		IsBanned:    u.IsBanned,
		ResetState:  u.ResetState,
		AuthToken:   u.AuthToken,
		Skills:      append([]string(nil), u.Skills...),
	}
	for _, e := range u.Education {
		f.Education = append(f.Education, fileEducation{
			UniversityName: e.UniversityName,
			Branch:         e.Branch,
			StartDate:      e.StartDate,
			EndDate:        e.EndDate,
		})
	}
	for _, w := range u.WorkExperiences {
		f.Work = append(f.Work, fileWork{
			EntryID:     w.EntryID,
			CompanyName: w.CompanyName,
			Position:    w.Position,
			Description: w.Description,
			StartDate:   w.StartDate,
			EndDate:     w.EndDate,
		})
	}
	return f
}

func (f fileUser) toModel() *model.User {
	u := &model.User{
		ID:          f.ID,
		Username:    f.Username,
		Email:       f.Email,
		Password:    f.Password,
		CollegeName: f.CollegeName,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Role:        f.Role,
		OTP:         f.OTP,
		Verified:    f.Verified,
		IsBanned:    f.IsBanned,
		ResetState:  f.ResetState,
		AuthToken:   f.AuthToken,
		Skills:      append([]string(nil), f.Skills...),
	}
	for _, e := range f.Education {
		u.Education = append(u.Education, model.Education{
			UserID:         f.ID,
			UniversityName: e.UniversityName,
			Branch:         e.Branch,
			StartDate:      e.StartDate,
			EndDate:        e.EndDate,
		})
	}
	for _, w := range f.Work {
		u.WorkExperiences = append(u.WorkExperiences, model.WorkExperience{
			UserID:      f.ID,
			EntryID:     w.EntryID,
			CompanyName: w.CompanyName,
			Position:    w.Position,
			Description: w.Description,
			StartDate:   w.StartDate,
			EndDate:     w.EndDate,
		})
	}
	return u
}

// FileStore 把全部账号序列化为单个 JSON 文件。
//
// 每次变更整体重写文件（与最早的 users.json 变体一致），
// 内部互斥锁保证文件写入不交错。
type FileStore struct {
	path string

	mu  sync.Mutex
	doc fileDocument
}

// NewFileStore 创建文件存储；文件不存在时从空集合开始。
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = fileDocument{NextID: 1}
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if s.doc.NextID == 0 {
		s.doc.NextID = uint(len(s.doc.Users) + 1)
	}
	return s, nil
}

// persist 整体重写文件，调用方必须持有 s.mu。
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

func (s *FileStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.Username == username {
			return u.toModel(), nil
		}
	}
	return nil, nil
}

func (s *FileStore) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.Username == identifier || u.Email == identifier {
			return u.toModel(), nil
		}
	}
	return nil, nil
}

func (s *FileStore) FindByOTP(ctx context.Context, code string) (*model.User, error) {
	if code == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.OTP == code {
			return u.toModel(), nil
		}
	}
	return nil, nil
}

func (s *FileStore) FindBySkills(ctx context.Context, skills []string) ([]*model.User, error) {
	if len(skills) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.User
	for _, u := range s.doc.Users {
		if holdsAny(u.Skills, skills) {
			out = append(out, u.toModel())
		}
	}
	return out, nil
}

func (s *FileStore) Insert(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = s.doc.NextID
	s.doc.NextID++
	s.doc.Users = append(s.doc.Users, toFileUser(user))
	return s.persist()
}

func (s *FileStore) Save(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.doc.Users {
		if u.Username == user.Username {
			rec := toFileUser(user)
			rec.ID = u.ID
			s.doc.Users[i] = rec
			return s.persist()
		}
	}
	return fmt.Errorf("save user: %s not found", user.Username)
}

func (s *FileStore) LoadCatalog(ctx context.Context) (*model.SkillCatalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &model.SkillCatalog{
		ID:         1,
		Predefined: append([]string(nil), s.doc.Catalog.Predefined...),
		Proposed:   append([]string(nil), s.doc.Catalog.Proposed...),
	}, nil
}

func (s *FileStore) SaveCatalog(ctx context.Context, catalog *model.SkillCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Catalog = fileCatalog{
		Predefined: append([]string(nil), catalog.Predefined...),
		Proposed:   append([]string(nil), catalog.Proposed...),
	}
	return s.persist()
}
