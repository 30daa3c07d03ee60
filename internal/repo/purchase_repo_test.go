package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

func TestGetPurchase_And_OrderView(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	notify := "orders@acme.example"
	if err := db.Model(f.Company).Update("notification_email", notify).Error; err != nil {
		t.Fatalf("set notification email: %v", err)
	}

	p := f.purchase("view-key-00001", 3, time.Now().UTC())
	if err := CreatePurchase(ctx, db, p); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	got, err := GetPurchase(ctx, db, p.ID)
	if err != nil || got.IdempotencyKey != "view-key-00001" || got.Quantity != 3 {
		t.Fatalf("GetPurchase: %+v %v", got, err)
	}
	if got.CompanyAmount+got.InfluencerAmount+got.PlatformAmount != got.Total() {
		t.Fatalf("split does not add up: %+v", got)
	}

	v, err := GetOrderView(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetOrderView: %v", err)
	}
	if v.PurchaseID != p.ID || v.ProductName != "Green tea" || v.Total() != 3000 ||
		v.CompanyName != "Acme" || v.CompanyEmail != "acme@example.com" ||
		v.CompanyNotificationEmail == nil || *v.CompanyNotificationEmail != notify ||
		v.BuyerEmail != "bob@example.com" || v.ReferrerName == nil || *v.ReferrerName != "Ivy" {
		t.Fatalf("unexpected view: %+v", v)
	}

	if _, err := GetOrderView(ctx, db, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetPurchase(ctx, db, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurchaseLists_BuyerAndCompany(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		p := f.purchase(fmt.Sprintf("list-key-%05d", i), int64(i+1), base.Add(time.Duration(i)*time.Hour))
		if err := CreatePurchase(ctx, db, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	total, err := CountPurchasesByBuyer(ctx, db, f.Buyer.ID)
	if err != nil || total != 3 {
		t.Fatalf("CountPurchasesByBuyer = %d, %v", total, err)
	}
	page, err := ListPurchasesByBuyerPage(ctx, db, f.Buyer.ID, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListPurchasesByBuyerPage: %+v %v", page, err)
	}
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %d,%d", page[0].ID, page[1].ID)
	}
	if page[0].Title != "Tea" || page[0].CompanyName != "Acme" || page[0].BuyerName != "Bob" ||
		page[0].ReferrerName == nil || *page[0].ReferrerName != "Ivy" || !page[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected summary: %+v", page[0])
	}

	// Handled rows sink below unhandled ones in the company view.
	if err := MarkPurchaseHandled(ctx, db, ids[2], f.Company.ID); err != nil {
		t.Fatalf("MarkPurchaseHandled: %v", err)
	}
	n, err := CountPurchasesByCompany(ctx, db, f.Company.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountPurchasesByCompany = %d, %v", n, err)
	}
	rows, err := ListPurchasesByCompanyPage(ctx, db, f.Company.ID, 0, 10)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListPurchasesByCompanyPage: %+v %v", rows, err)
	}
	if rows[0].ID != ids[1] || rows[1].ID != ids[0] || rows[2].ID != ids[2] || !rows[2].Handled {
		t.Fatalf("unexpected company order: %d,%d,%d", rows[0].ID, rows[1].ID, rows[2].ID)
	}

	none, err := ListPurchasesByCompanyPage(ctx, db, f.Buyer.ID, 0, 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no rows for other company, got %+v %v", none, err)
	}
}

func TestMarkPurchaseHandled_OwnerOnly_Idempotent(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	p := f.purchase("handled-key-01", 1, time.Now().UTC())
	if err := CreatePurchase(ctx, db, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := MarkPurchaseHandled(ctx, db, p.ID, f.Influencer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-owner should get ErrNotFound, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := MarkPurchaseHandled(ctx, db, p.ID, f.Company.ID); err != nil {
			t.Fatalf("MarkPurchaseHandled #%d: %v", i, err)
		}
	}
	got, _ := GetPurchase(ctx, db, p.ID)
	if !got.Handled {
		t.Fatalf("expected handled")
	}
}

func TestNotificationLogs_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pid := int64(1)

	ok, err := CreateNotificationLog(ctx, db, &pid, nil, domain.ChannelCompany, "acme@example.com", "New order #1")
	if err != nil || ok.Status != domain.NotificationPending || ok.Attempts != 0 {
		t.Fatalf("CreateNotificationLog: %+v %v", ok, err)
	}
	bad, err := CreateNotificationLog(ctx, db, &pid, nil, domain.ChannelBuyer, "bob@example.com", "Receipt")
	if err != nil {
		t.Fatalf("CreateNotificationLog: %v", err)
	}

	sentAt := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if err := MarkNotificationDelivered(ctx, db, ok.ID, sentAt); err != nil {
		t.Fatalf("MarkNotificationDelivered: %v", err)
	}
	if err := MarkNotificationFailed(ctx, db, bad.ID, strings.Repeat("x", 2500)); err != nil {
		t.Fatalf("MarkNotificationFailed: %v", err)
	}
	if err := MarkNotificationFailed(ctx, db, 999, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	logs, err := ListNotificationLogsByPurchase(ctx, db, pid)
	if err != nil || len(logs) != 2 {
		t.Fatalf("ListNotificationLogsByPurchase: %+v %v", logs, err)
	}
	if logs[0].Status != domain.NotificationDelivered || logs[0].Attempts != 1 || logs[0].SentAt == nil || !logs[0].SentAt.Equal(sentAt) {
		t.Fatalf("unexpected delivered log: %+v", logs[0])
	}
	if logs[1].Status != domain.NotificationFailed || logs[1].Attempts != 1 ||
		logs[1].LastError == nil || len(*logs[1].LastError) != MaxNotificationErrorLen {
		t.Fatalf("unexpected failed log: %+v", logs[1])
	}

	n, err := CountNotificationLogs(ctx, db, domain.NotificationFailed)
	if err != nil || n != 1 {
		t.Fatalf("CountNotificationLogs(failed) = %d, %v", n, err)
	}
	n, err = CountNotificationLogs(ctx, db, "")
	if err != nil || n != 2 {
		t.Fatalf("CountNotificationLogs(all) = %d, %v", n, err)
	}
	page, err := ListNotificationLogsPage(ctx, db, domain.NotificationDelivered, 0, 10)
	if err != nil || len(page) != 1 || page[0].ID != ok.ID {
		t.Fatalf("ListNotificationLogsPage: %+v %v", page, err)
	}
}

func TestMarkNotificationFailed_KeepsReasonValidUTF8(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pid := int64(1)

	rec, err := CreateNotificationLog(ctx, db, &pid, nil, domain.ChannelBuyer, "bob@example.com", "Receipt")
	if err != nil {
		t.Fatalf("CreateNotificationLog: %v", err)
	}
	// 3-byte runes: a byte cut at 2000 would land mid-rune.
	reason := strings.Repeat("配", 1000)
	if err := MarkNotificationFailed(ctx, db, rec.ID, reason); err != nil {
		t.Fatalf("MarkNotificationFailed: %v", err)
	}

	logs, err := ListNotificationLogsByPurchase(ctx, db, pid)
	if err != nil || len(logs) != 1 || logs[0].LastError == nil {
		t.Fatalf("logs: %+v %v", logs, err)
	}
	got := *logs[0].LastError
	if !utf8.ValidString(got) || len(got) != 1998 || logs[0].Status != domain.NotificationFailed {
		t.Fatalf("stored reason len=%d valid=%v status=%s", len(got), utf8.ValidString(got), logs[0].Status)
	}
}

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"éé", 3, "é"},
		{"é", 1, ""},
	}
	for _, tc := range cases {
		if got := truncateUTF8(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncateUTF8(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
