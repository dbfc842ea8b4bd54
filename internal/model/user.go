package model

import "time"

// ResetState 表示找回密码流程的确认状态。
type ResetState string

const (
	ResetStateNone      ResetState = ""          // 未发起找回
	ResetStatePending   ResetState = "pending"   // 已下发 OTP，等待确认
	ResetStateConfirmed ResetState = "confirmed" // OTP 已确认，允许改密
)

// User 表示系统用户账号。
//
// username 与 email 均为全局唯一；verified 为 false 时禁止登录。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Username    string `gorm:"type:varchar(191);uniqueIndex;not null" json:"username"` // 用户名（唯一）
	Email       string `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`    // 邮箱（唯一）
	Password    string `gorm:"not null" json:"-"`                                      // bcrypt 哈希
	CollegeName string `gorm:"type:varchar(191)" json:"collegeName"`                   // 所属院校
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        string `gorm:"type:varchar(16);default:user" json:"role"` // 角色: user / admin

	OTP        string     `gorm:"column:otp;type:varchar(32)" json:"-"`              // 当前一次性验证码
	Verified   bool       `gorm:"default:false" json:"verified"`                     // 注册 OTP 是否已确认
	IsBanned   bool       `gorm:"default:false" json:"isBanned"`                     // 封禁后无条件禁止登录
	ResetState ResetState `gorm:"type:varchar(16);default:''" json:"-"`              // 找回密码确认状态
	AuthToken  string     `gorm:"column:auth_token;type:varchar(512)" json:"-"`      // 最近一次签发的 JWT
	Skills     []string   `gorm:"serializer:json;type:json" json:"skills,omitempty"` // 技能列表（去空格、忽略大小写去重）

	Education       []Education      `gorm:"foreignKey:UserID" json:"education,omitempty"`
	WorkExperiences []WorkExperience `gorm:"foreignKey:UserID" json:"workExperiences,omitempty"`
}

// Education 表示一条教育经历。
type Education struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	UserID uint `gorm:"index;not null" json:"-"` // 所属用户 ID

	UniversityName string `json:"universityName"` // 院校名称
	Branch         string `json:"branch"`         // 专业方向
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

// WorkExperience 表示一条工作经历。
//
// EntryID 是客户端提供的条目标识，用于 add-or-update 语义。
type WorkExperience struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	UserID uint `gorm:"index;not null" json:"-"` // 所属用户 ID

	EntryID     int    `gorm:"column:entry_id;not null" json:"id"` // 条目标识（同一用户内唯一）
	CompanyName string `json:"companyName"`
	Position    string `json:"position"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// SkillCatalog 表示全局技能目录（单行表）。
//
// Predefined 为管理员维护的预定义技能列表；Proposed 为用户新增、
// 待管理员审核合并的技能列表。
type SkillCatalog struct {
	ID        uint      `gorm:"primaryKey"`
	UpdatedAt time.Time

	Predefined []string `gorm:"serializer:json;type:json"` // 预定义技能
	Proposed   []string `gorm:"serializer:json;type:json"` // 用户提议、待审核的技能
}
