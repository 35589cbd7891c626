package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	"elearning/backend/pkg/sms"
)

const dispatchTimeout = 15 * time.Second

// Notice 一条通知内容
// SMS 为空时短信正文使用 Body
type Notice struct {
	Title string
	Body  string
	Link  string
	SMS   string
}

func (n Notice) smsText() string {
	if n.SMS != "" {
		return n.SMS
	}
	return n.Body
}

// Notifier 站内通知 + 短信，尽力而为
// 实现必须吞掉所有错误（包括 panic），调用方不关心结果
type Notifier interface {
	NotifyUser(ctx context.Context, recipientID, creatorID int64, notice Notice)
	NotifyUsers(ctx context.Context, recipientIDs []int64, creatorID int64, notice Notice)
}

type dispatcher struct {
	repo        *repository.Repository
	sms         sms.Sender
	concurrency int
	logger      *zap.Logger
}

// NewNotifier 创建通知分发器
// concurrency 为短信并发上限
func NewNotifier(repo *repository.Repository, sender sms.Sender, concurrency int, logger *zap.Logger) Notifier {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &dispatcher{repo: repo, sms: sender, concurrency: concurrency, logger: logger}
}

func (d *dispatcher) NotifyUser(ctx context.Context, recipientID, creatorID int64, notice Notice) {
	d.NotifyUsers(ctx, []int64{recipientID}, creatorID, notice)
}

func (d *dispatcher) NotifyUsers(ctx context.Context, recipientIDs []int64, creatorID int64, notice Notice) {
	if len(recipientIDs) == 0 {
		return
	}
	defer d.recover("notify", recipientIDs)

	// 提交后的副作用不随请求取消
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	n := &model.Notification{UserID: creatorID, Title: notice.Title}
	if notice.Body != "" {
		n.Body = strPtr(notice.Body)
	}
	if notice.Link != "" {
		n.Link = strPtr(notice.Link)
	}
	if err := d.repo.Notification.Create(ctx, n, recipientIDs); err != nil {
		d.logger.Warn("写入站内通知失败", zap.Int64s("recipients", recipientIDs), zap.Error(err))
	}

	d.sendSMS(ctx, recipientIDs, notice.smsText())
}

func (d *dispatcher) sendSMS(ctx context.Context, recipientIDs []int64, text string) {
	if d.sms == nil || text == "" {
		return
	}

	users, err := d.repo.User.GetByIDs(ctx, recipientIDs)
	if err != nil {
		d.logger.Warn("查询短信接收人失败", zap.Int64s("recipients", recipientIDs), zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i := range users {
		u := users[i]
		phone := u.PhoneNumber()
		if phone == "" {
			d.logger.Warn("用户未填写手机号，跳过短信", zap.Int64("user_id", u.ID))
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("短信发送 panic", zap.Int64("user_id", u.ID), zap.Any("panic", r))
				}
			}()
			if err := d.sms.Send(gctx, phone, text); err != nil {
				d.logger.Warn("短信发送失败", zap.Int64("user_id", u.ID), zap.Error(err))
			}
			// 单条失败不影响其余接收人
			return nil
		})
	}
	_ = g.Wait()
}

func (d *dispatcher) recover(op string, recipientIDs []int64) {
	if r := recover(); r != nil {
		d.logger.Error("通知分发 panic",
			zap.String("op", op),
			zap.Int64s("recipients", recipientIDs),
			zap.String("panic", fmt.Sprint(r)),
		)
	}
}
