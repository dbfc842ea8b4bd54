package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SanjitSai/AspireTest/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现基于 SMTP 的邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// Send 发送一封 HTML 邮件。
func (n *EmailNotifier) Send(ctx context.Context, to string, subject string, body string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)

	// gomail 不感知 ctx，拨号放到独立 goroutine 中以便超时返回
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}

	n.logger.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// OTPBody 渲染验证码邮件的 HTML 正文。
//
// 参数:
//
//	purpose: 用途说明（如 "registration" / "password reset"）
//	code: 25 位验证码
func OTPBody(purpose string, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>AspireTest</h2>
    <p>Your OTP for %s is:</p>
    <div style="font-size: 22px; font-weight: bold; letter-spacing: 2px; word-break: break-all;">%s</div>
  </div>
</body>
</html>`, purpose, code)
}
