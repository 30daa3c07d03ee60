package repo

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// MaxNotificationErrorLen caps the stored failure reason.
const MaxNotificationErrorLen = 2000

// CreateNotificationLog records a pending notification before it is sent.
func CreateNotificationLog(ctx context.Context, db *gorm.DB, purchaseID, userID *int64, channel, to, subject string) (*domain.NotificationLog, error) {
	rec := &domain.NotificationLog{
		PurchaseID: purchaseID,
		UserID:     userID,
		Channel:    channel,
		ToEmail:    to,
		Subject:    subject,
		Status:     domain.NotificationPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkNotificationDelivered moves a log to delivered and counts the attempt.
func MarkNotificationDelivered(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return finishNotification(ctx, db, id, map[string]any{
		"status":     domain.NotificationDelivered,
		"attempts":   gorm.Expr("attempts + 1"),
		"sent_at":    at.UTC(),
		"last_error": nil,
	})
}

// MarkNotificationFailed moves a log to failed, counts the attempt and
// stores the reason truncated to MaxNotificationErrorLen bytes.
func MarkNotificationFailed(ctx context.Context, db *gorm.DB, id int64, reason string) error {
	reason = truncateUTF8(reason, MaxNotificationErrorLen)
	return finishNotification(ctx, db, id, map[string]any{
		"status":     domain.NotificationFailed,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	})
}

func finishNotification(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	res := db.WithContext(ctx).Model(&domain.NotificationLog{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountNotificationLogs returns the number of logs, optionally filtered by status.
func CountNotificationLogs(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.NotificationLog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListNotificationLogsPage returns logs newest first, optionally filtered by status.
func ListNotificationLogsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.NotificationLog, error) {
	var out []domain.NotificationLog
	q := db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at desc").Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListNotificationLogsByPurchase returns the logs for one purchase in
// creation order.
func ListNotificationLogsByPurchase(ctx context.Context, db *gorm.DB, purchaseID int64) ([]domain.NotificationLog, error) {
	var out []domain.NotificationLog
	err := db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
