// Package metrics 定义 Prometheus 指标。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RegistrationsTotal 注册成功总数。
	RegistrationsTotal prometheus.Counter
	// VerificationsTotal 注册 OTP 确认成功总数。
	VerificationsTotal prometheus.Counter
	// LoginsTotal 登录成功总数。
	LoginsTotal prometheus.Counter
	// LoginFailuresTotal 登录失败总数（按原因标签区分）。
	LoginFailuresTotal *prometheus.CounterVec
	// PasswordResetsTotal 改密成功总数。
	PasswordResetsTotal prometheus.Counter
	// EmailsEnqueuedTotal 入队待发送的邮件总数。
	EmailsEnqueuedTotal prometheus.Counter
	// EmailsDroppedTotal 因队列满被丢弃的邮件总数。
	EmailsDroppedTotal prometheus.Counter
)

var initOnce sync.Once

// InitMetrics 注册所有指标（幂等，可在测试中重复调用）。
func InitMetrics() {
	initOnce.Do(func() {
		RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_registrations_total",
			Help: "Number of successful user registrations.",
		})
		VerificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_verifications_total",
			Help: "Number of successful registration OTP verifications.",
		})
		LoginsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_logins_total",
			Help: "Number of successful logins.",
		})
		LoginFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aspiretest_login_failures_total",
			Help: "Number of failed logins by reason.",
		}, []string{"reason"})
		PasswordResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_password_resets_total",
			Help: "Number of successful password resets.",
		})
		EmailsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_emails_enqueued_total",
			Help: "Number of OTP emails enqueued for delivery.",
		})
		EmailsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspiretest_emails_dropped_total",
			Help: "Number of OTP emails dropped because the queue was full.",
		})

		prometheus.MustRegister(
			RegistrationsTotal,
			VerificationsTotal,
			LoginsTotal,
			LoginFailuresTotal,
			PasswordResetsTotal,
			EmailsEnqueuedTotal,
			EmailsDroppedTotal,
		)
	})
}
