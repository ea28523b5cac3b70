package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"wildenergy/internal/logger"

	"github.com/redis/go-redis/v9"
)

const queueKey = "notifications"

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues member notifications in Redis and drains them through
// SMTP in a background worker, so registration requests never wait on
// a mail server.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	job := Job{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue notification to %s: %v", to, err)
		return err
	}

	logger.Infof("Notification queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send notification to %s: %v", job.To, err)

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notification to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	logger.Infof("Notification sent to %s", job.To)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), queueKey+":failed", data)
	logger.Errorf("Notification moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendRegistrationConfirmation(ctx context.Context, email, name, className, qrToken string, startAt time.Time) error {
	subject := "Registration Confirmed - " + className
	body := fmt.Sprintf(`Hi %s,

You're registered!

Class: %s
Time: %s

Show this code at the front desk to check in:

%s

See you at the studio!

- Wild Energy Team`, name, className, startAt.Format("Jan 2, 2006 at 3:04 PM"), qrToken)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendCancellationNotice(ctx context.Context, email, name, className string, startAt time.Time, refunded bool) error {
	subject := "Registration Cancelled - " + className
	refundLine := "Your session was returned to your plan."
	if !refunded {
		refundLine = "The session was not refunded (late cancellation)."
	}
	body := fmt.Sprintf(`Hi %s,

Your registration has been cancelled:

Class: %s
Time: %s

%s

- Wild Energy Team`, name, className, startAt.Format("Jan 2, 2006 at 3:04 PM"), refundLine)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendCourseCancelled(ctx context.Context, email, name, className string, startAt time.Time) error {
	subject := "Class Cancelled - " + className
	body := fmt.Sprintf(`Hi %s,

Unfortunately this class has been cancelled by the studio:

Class: %s
Time: %s

Your session has been returned to your plan.

- Wild Energy Team`, name, className, startAt.Format("Jan 2, 2006 at 3:04 PM"))

	return s.Send(ctx, email, name, subject, body)
}
