package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// mockAlertStore はテスト用のAlertStoreモック実装です。
type mockAlertStore struct {
	appendFn     func(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error)
	listRecentFn func(ctx context.Context, limit int) ([]entity.AlertRecord, error)
}

// Append はモックのAppend関数を呼び出します。
func (m *mockAlertStore) Append(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error) {
	if m.appendFn != nil {
		return m.appendFn(ctx, instrumentID, message, triggerPrice)
	}
	return &entity.AlertRecord{ID: 1, InstrumentID: instrumentID, Message: message, TriggerPrice: triggerPrice}, nil
}

// ListRecent はモックのListRecent関数を呼び出します。
func (m *mockAlertStore) ListRecent(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

var sampleAlerts = []entity.AlertRecord{
	{ID: 2, InstrumentID: 1, Message: "AAPL is now above target 100.00 (latest 101.00)", TriggerPrice: 101, TriggeredAt: time.Date(2024, 3, 1, 9, 31, 0, 0, time.UTC)},
	{ID: 1, InstrumentID: 1, Message: "AAPL is now above target 100.00 (latest 100.50)", TriggerPrice: 100.5, TriggeredAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
}

// TestNewCachingAlertRepository_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingAlertRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"default values when zero/empty", 0, "", time.Minute, "alerts"},
		{"negative ttl uses default", -time.Minute, "", time.Minute, "alerts"},
		{"custom values preserved", 10 * time.Minute, "custom", 10 * time.Minute, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewCachingAlertRepository(nil, tt.ttl, &mockAlertStore{}, tt.namespace)
			if repo.ttl != tt.expectedTTL {
				t.Errorf("expected TTL %v, got %v", tt.expectedTTL, repo.ttl)
			}
			if repo.namespace != tt.expectedNamespace {
				t.Errorf("expected namespace %q, got %q", tt.expectedNamespace, repo.namespace)
			}
		})
	}
}

// TestCachingAlertRepository_ListRecent_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingAlertRepository_ListRecent_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockAlertStore{
		listRecentFn: func(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
			return sampleAlerts, nil
		},
	}

	repo := NewCachingAlertRepository(nil, time.Minute, inner, "")
	got, err := repo.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 alerts, got %d", len(got))
	}

	// Append and Invalidate must not touch a nil client.
	if _, err := repo.Append(context.Background(), 1, "m", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestCachingAlertRepository_ListRecent_CacheHit はキャッシュヒット時に内部リポジトリを呼ばないことを検証します。
func TestCachingAlertRepository_ListRecent_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(sampleAlerts)
	mock.ExpectGet("alerts:recent:50").SetVal(string(cached))

	innerCalled := false
	inner := &mockAlertStore{
		listRecentFn: func(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
			innerCalled = true
			return nil, nil
		},
	}

	repo := NewCachingAlertRepository(rdb, time.Minute, inner, "alerts")
	got, err := repo.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalled {
		t.Error("inner repository should not be called on cache hit")
	}
	if len(got) != 2 || got[0].ID != 2 {
		t.Errorf("unexpected cached alerts: %+v", got)
	}
	if !got[0].TriggeredAt.Equal(sampleAlerts[0].TriggeredAt) {
		t.Errorf("expected triggered_at %v, got %v", sampleAlerts[0].TriggeredAt, got[0].TriggeredAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingAlertRepository_ListRecent_CacheMiss はキャッシュミス時にDBから取得してキャッシュに保存することを検証します。
func TestCachingAlertRepository_ListRecent_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, _ := json.Marshal(sampleAlerts)
	mock.ExpectGet("alerts:recent:10").RedisNil()
	mock.ExpectSet("alerts:recent:10", expected, time.Minute).SetVal("OK")

	var gotLimit int
	inner := &mockAlertStore{
		listRecentFn: func(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
			gotLimit = limit
			return sampleAlerts, nil
		},
	}

	repo := NewCachingAlertRepository(rdb, time.Minute, inner, "alerts")
	got, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 10 {
		t.Errorf("expected limit 10 to reach inner, got %d", gotLimit)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 alerts, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingAlertRepository_ListRecent_InnerError は内部リポジトリのエラーが伝播されることを検証します。
func TestCachingAlertRepository_ListRecent_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("database error")
	mock.ExpectGet("alerts:recent:50").RedisNil()

	inner := &mockAlertStore{
		listRecentFn: func(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
			return nil, expectedErr
		},
	}

	repo := NewCachingAlertRepository(rdb, time.Minute, inner, "alerts")
	if _, err := repo.ListRecent(context.Background(), 50); !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

// TestCachingAlertRepository_ListRecent_CorruptedCache は破損したキャッシュを削除してDBにフォールバックすることを検証します。
func TestCachingAlertRepository_ListRecent_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, _ := json.Marshal(sampleAlerts)
	mock.ExpectGet("alerts:recent:50").SetVal("invalid json")
	mock.ExpectDel("alerts:recent:50").SetVal(1)
	mock.ExpectSet("alerts:recent:50", expected, time.Minute).SetVal("OK")

	inner := &mockAlertStore{
		listRecentFn: func(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
			return sampleAlerts, nil
		},
	}

	repo := NewCachingAlertRepository(rdb, time.Minute, inner, "alerts")
	got, err := repo.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 alerts, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingAlertRepository_Append_Invalidates はAppend後にキャッシュが無効化されることを検証します。
func TestCachingAlertRepository_Append_Invalidates(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "alerts:recent:*", 200).SetVal([]string{"alerts:recent:50", "alerts:recent:10"}, 0)
	mock.ExpectDel("alerts:recent:50", "alerts:recent:10").SetVal(2)

	repo := NewCachingAlertRepository(rdb, time.Minute, &mockAlertStore{}, "alerts")
	rec, err := repo.Append(context.Background(), 7, "msg", 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.InstrumentID != 7 {
		t.Errorf("expected instrument 7, got %d", rec.InstrumentID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingAlertRepository_Append_InnerError はAppend失敗時にキャッシュを触らないことを検証します。
func TestCachingAlertRepository_Append_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("insert failed")
	inner := &mockAlertStore{
		appendFn: func(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error) {
			return nil, expectedErr
		},
	}

	repo := NewCachingAlertRepository(rdb, time.Minute, inner, "alerts")
	if _, err := repo.Append(context.Background(), 1, "m", 1); !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected redis calls: %v", err)
	}
}

// TestCachingAlertRepository_Append_InvalidationFailureIsIgnored はキャッシュ削除失敗がAppendを失敗させないことを検証します。
func TestCachingAlertRepository_Append_InvalidationFailureIsIgnored(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "alerts:recent:*", 200).SetErr(errors.New("connection refused"))

	repo := NewCachingAlertRepository(rdb, time.Minute, &mockAlertStore{}, "alerts")
	if _, err := repo.Append(context.Background(), 1, "m", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
