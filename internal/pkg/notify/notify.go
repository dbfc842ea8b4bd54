package notify

import "context"

// Notifier 定义通知接口。
type Notifier interface {
	// Send 向指定邮箱发送一封通知邮件。
	//
	// 参数:
	//   ctx: 上下文（用于在邮件网关无响应时及时放弃）
	//   to: 收件人邮箱
	//   subject: 邮件主题
	//   body: HTML 正文
	Send(ctx context.Context, to string, subject string, body string) error
}
