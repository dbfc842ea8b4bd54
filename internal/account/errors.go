package account

import "errors"

// 服务层错误分类。HTTP 边界通过 errors.Is 映射为状态码。
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNotVerified       = errors.New("user not verified")
	ErrBanned            = errors.New("user is banned")
	ErrInvalidOTPState   = errors.New("invalid otp state")
)
