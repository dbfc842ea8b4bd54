// Package store 提供账号存储的两种实现：MySQL（生产）与 JSON 文件。
// 两者满足同一契约，查询未命中返回 (nil, nil)。
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SanjitSai/AspireTest/internal/model"

	"gorm.io/gorm"
)

// GormStore 基于 GORM/MySQL 的账号存储。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 MySQL 存储并执行表结构迁移。
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.User{}, &model.Education{}, &model.WorkExperience{}, &model.SkillCatalog{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, "username = ?", username)
}

func (s *GormStore) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	return s.findOne(ctx, "username = ? OR email = ?", identifier, identifier)
}

func (s *GormStore) FindByOTP(ctx context.Context, code string) (*model.User, error) {
	if code == "" {
		return nil, nil
	}
	return s.findOne(ctx, "otp = ?", code)
}

func (s *GormStore) findOne(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Preload("Education").
		Preload("WorkExperiences").
		Where(query, args...).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// FindBySkills 返回持有任一给定技能的账号。
//
// 技能存在 JSON 列中，这里全量扫描后在内存过滤；
// 只有管理员审核技能目录时才会走到这条路径。
func (s *GormStore) FindBySkills(ctx context.Context, skills []string) ([]*model.User, error) {
	if len(skills) == 0 {
		return nil, nil
	}

	var users []model.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	var out []*model.User
	for i := range users {
		if holdsAny(users[i].Skills, skills) {
			out = append(out, &users[i])
		}
	}
	return out, nil
}

func (s *GormStore) Insert(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) Save(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(user).Error
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// LoadCatalog 读取全局技能目录，不存在则创建空目录。
func (s *GormStore) LoadCatalog(ctx context.Context) (*model.SkillCatalog, error) {
	var catalog model.SkillCatalog
	err := s.db.WithContext(ctx).
		Where(model.SkillCatalog{ID: 1}).
		FirstOrCreate(&catalog).Error
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &catalog, nil
}

func (s *GormStore) SaveCatalog(ctx context.Context, catalog *model.SkillCatalog) error {
	catalog.ID = 1
	if err := s.db.WithContext(ctx).Save(catalog).Error; err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func holdsAny(have []string, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
