// Package otp 生成注册与找回密码使用的一次性验证码。
package otp

import (
	"crypto/rand"
	"fmt"
)

// Length 是验证码的固定长度。
const Length = 25

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate 生成一个 25 位字母数字验证码。
//
// 每个字符独立地从 [A-Za-z0-9] 中采样，随机源为 crypto/rand。
func Generate() (string, error) {
	return generate(Length)
}

func generate(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid otp length")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}
