package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SanjitSai/AspireTest/internal/account"
	"github.com/SanjitSai/AspireTest/internal/model"

	"github.com/gin-gonic/gin"
)

// writeServiceError 将服务层的哨兵错误映射为 HTTP 状态码。
//
// notFoundStatus 允许档案类路由把 ErrNotFound 映射为 404，
// 其余路由统一 400。
func (s *Server) writeServiceError(c *gin.Context, err error, notFoundStatus int) {
	switch {
	case errors.Is(err, account.ErrNotFound):
		c.JSON(notFoundStatus, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrValidation),
		errors.Is(err, account.ErrConflict),
		errors.Is(err, account.ErrInvalidCredential),
		errors.Is(err, account.ErrNotVerified),
		errors.Is(err, account.ErrBanned),
		errors.Is(err, account.ErrInvalidOTPState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// currentUsername 读取 AuthMiddleware 写入的用户名。
func currentUsername(c *gin.Context) string {
	return c.GetString("username")
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Email           string `json:"email" binding:"required"`
	CollegeName     string `json:"collegeName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

// handleRegister 处理注册请求。
//
// POST /register
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.Register(c.Request.Context(), account.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Email:           req.Email,
		CollegeName:     req.CollegeName,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully! Please verify your email.",
		"user":    user,
	})
}

type verifyRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// handleVerify 校验注册 OTP 并激活账号。
//
// POST /verify
func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.Verify(c.Request.Context(), req.OTP)
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User verified successfully!",
		"user":    user,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin 校验凭据并签发 JWT。
//
// POST /login
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful!",
		"token":   token,
	})
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier" binding:"required"` // 用户名或邮箱
}

// handleForgotPassword 发起找回密码流程并下发新 OTP。
//
// POST /forgotpassword
func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.ForgotPassword(c.Request.Context(), req.Identifier)
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset OTP sent to your email.",
		"user":    user,
	})
}

// handleVerifyForgotPassword 确认找回密码 OTP。
//
// POST /verifyForgotPassword
func (s *Server) handleVerifyForgotPassword(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.svc.VerifyForgotPassword(c.Request.Context(), req.OTP); err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP verified. You may reset your password."})
}

type resetPasswordRequest struct {
	Username         string `json:"username" binding:"required"`
	ExistingPassword string `json:"existingPassword" binding:"required"`
	NewPassword      string `json:"newPassword" binding:"required"`
}

// handleResetPassword 在 OTP 确认后更新密码。
//
// PUT /resetpassword
func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.ResetPassword(c.Request.Context(),
		req.Username, req.ExistingPassword, req.NewPassword)
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated successfully!",
		"user":    user,
	})
}

type skillRequest struct {
	Skill string `json:"skill" binding:"required"`
}

// handleAddSkill 为当前账号追加技能。
//
// PUT /addskill
func (s *Server) handleAddSkill(c *gin.Context) {
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	skills, err := s.svc.AddSkill(c.Request.Context(), currentUsername(c), req.Skill)
	if err != nil {
		s.writeServiceError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Skill added successfully!",
		"skills":  skills,
	})
}

// handleDeleteSkill 删除当前账号的一个技能。
//
// DELETE /deleteskill
func (s *Server) handleDeleteSkill(c *gin.Context) {
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	skills, err := s.svc.DeleteSkill(c.Request.Context(), currentUsername(c), req.Skill)
	if err != nil {
		s.writeServiceError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Skill deleted successfully!",
		"skills":  skills,
	})
}

type educationRequest struct {
	UniversityName string `json:"universityName" binding:"required"`
	Branch         string `json:"branch"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

// handleUpsertEducation 新增或更新一条教育经历。
//
// POST /addeducation, PUT /updateeducation
func (s *Server) handleUpsertEducation(c *gin.Context) {
	var req educationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.UpsertEducation(c.Request.Context(), currentUsername(c), model.Education{
		UniversityName: req.UniversityName,
		Branch:         req.Branch,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		s.writeServiceError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Education updated successfully!",
		"education": user.Education,
	})
}

type workRequest struct {
	ID          int    `json:"id" binding:"required"`
	CompanyName string `json:"companyName"`
	Position    string `json:"position"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// handleUpsertWork 按条目 id 新增或更新一条工作经历。
//
// POST /addwork, PUT /updatework
func (s *Server) handleUpsertWork(c *gin.Context) {
	var req workRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.UpsertWorkExperience(c.Request.Context(), currentUsername(c), model.WorkExperience{
		EntryID:     req.ID,
		CompanyName: req.CompanyName,
		Position:    req.Position,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		s.writeServiceError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Work experience updated successfully!",
		"workExperiences": user.WorkExperiences,
	})
}

// handlePredefinedSkills 返回预定义技能目录。
//
// GET /skills
func (s *Server) handlePredefinedSkills(c *gin.Context) {
	skills, err := s.svc.PredefinedSkills(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}
	if skills == nil {
		skills = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

type curateSkillsRequest struct {
	InvalidSkills []string `json:"invalidSkills" binding:"required"`
}

// handleCurateSkills 管理端：从目录和所有账号中剔除无效技能。
//
// PUT /admin/skills
func (s *Server) handleCurateSkills(c *gin.Context) {
	var req curateSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.svc.CurateSkills(c.Request.Context(), req.InvalidSkills); err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Skill catalog updated successfully!"})
}

type mergeSkillsRequest struct {
	NewSkills []string `json:"newSkills" binding:"required"`
}

// handleMergeProposedSkills 管理端：把新技能并入预定义目录。
//
// PUT /admin/skills/new
func (s *Server) handleMergeProposedSkills(c *gin.Context) {
	var req mergeSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.svc.MergeProposedSkills(c.Request.Context(), req.NewSkills); err != nil {
		s.writeServiceError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Skills merged successfully!"})
}
