package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/hitoshi/remindcast/internal/model"
	"github.com/hitoshi/remindcast/internal/security"
)

// PushResult はPushサービスのHTTPステータスコードに基づく配信結果の分類。
type PushResult int

const (
	// PushResultOK は配信受理（2xx）。
	PushResultOK PushResult = iota
	// PushResultGone は購読消滅（404/410/403）。デバイス登録を削除する。
	PushResultGone
	// PushResultTransient は一時的失敗（ネットワークエラー、429、5xxなど）。
	// デバイスは残し、次回の定期配信で再試行される。
	PushResultTransient
)

// ClassifyPushStatus はHTTPステータスコードを配信結果に分類する。
func ClassifyPushStatus(statusCode int) PushResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return PushResultOK
	case statusCode == 404 || statusCode == 410:
		return PushResultGone
	case statusCode == 403:
		return PushResultGone
	default:
		return PushResultTransient
	}
}

// DeviceOutcome は1デバイスへの配信試行の結果。
type DeviceOutcome struct {
	Endpoint     string
	OK           bool
	ShouldRemove bool
	Err          error
}

// AnySucceeded はデバイス結果のうち1件でも成功があればtrueを返す。
// ユーザーレベルの成否はこの値で決まる。
func AnySucceeded(outcomes []DeviceOutcome) bool {
	for _, o := range outcomes {
		if o.OK {
			return true
		}
	}
	return false
}

// PushSender は1デバイスへのPush送信のインターフェース。
// HTTPステータスコードを返す。リクエスト自体が失敗した場合のみエラーを返す。
type PushSender interface {
	Send(ctx context.Context, device model.Device, payload []byte) (int, error)
}

// WebPushSender はwebpush-goを使用したPushSenderの実装。
// VAPID認証付きでWeb Pushプロトコルのリクエストを送信する。
type WebPushSender struct {
	httpClient *http.Client
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

// NewWebPushSender はWebPushSenderを生成する。
// httpClientにはsecurity.EndpointGuardServiceのNewSafeClientで生成した
// SSRF防止付きクライアントを渡すこと。
func NewWebPushSender(httpClient *http.Client, publicKey, privateKey, subscriber string, ttl int) *WebPushSender {
	return &WebPushSender{
		httpClient: httpClient,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        ttl,
	}
}

// Send は1デバイスへPush通知を送信し、Pushサービスのステータスコードを返す。
func (s *WebPushSender) Send(ctx context.Context, device model.Device, payload []byte) (int, error) {
	sub := &webpush.Subscription{
		Endpoint: device.Endpoint,
		Keys: webpush.Keys{
			P256dh: device.P256dh,
			Auth:   device.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// Fanout は1アカウントの全有効デバイスへ並列にPushを送信する。
// デバイス間の追加の並列上限は設けない。1アカウントのデバイス数は少なく、
// アカウント単位の並列制御が外側にある。
type Fanout struct {
	sender  PushSender
	guard   security.EndpointGuardService
	logger  *slog.Logger
	timeout time.Duration
}

// NewFanout はFanoutを生成する。
// timeoutは1デバイスあたりの送信タイムアウト。
func NewFanout(sender PushSender, guard security.EndpointGuardService, logger *slog.Logger, timeout time.Duration) *Fanout {
	return &Fanout{
		sender:  sender,
		guard:   guard,
		logger:  logger,
		timeout: timeout,
	}
}

// Send は全デバイスへ並列に送信し、デバイスごとの結果を返す。
// 返り値の順序はdevicesの順序と一致する。
func (f *Fanout) Send(ctx context.Context, devices []model.Device, payload []byte) []DeviceOutcome {
	outcomes := make([]DeviceOutcome, len(devices))
	var wg sync.WaitGroup

	for i := range devices {
		wg.Add(1)
		go func(i int, d model.Device) {
			defer wg.Done()
			outcomes[i] = f.sendOne(ctx, d, payload)
		}(i, devices[i])
	}

	wg.Wait()
	return outcomes
}

// sendOne は1デバイスへの送信と結果分類を行う。
func (f *Fanout) sendOne(ctx context.Context, device model.Device, payload []byte) DeviceOutcome {
	if err := f.guard.ValidateEndpoint(device.Endpoint); err != nil {
		// 内部ネットワーク宛など不正なエンドポイントは購読ごと破棄する
		f.logger.Warn("不正なPushエンドポイントを検出しました",
			slog.String("account_id", device.AccountID),
			slog.String("error", err.Error()),
		)
		return DeviceOutcome{Endpoint: device.Endpoint, ShouldRemove: true, Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	status, err := f.sender.Send(sendCtx, device, payload)
	if err != nil {
		// ネットワークエラー・タイムアウトは一時的失敗としてデバイスを残す
		f.logger.Warn("Push送信に失敗しました",
			slog.String("account_id", device.AccountID),
			slog.String("error", err.Error()),
		)
		return DeviceOutcome{Endpoint: device.Endpoint, Err: err}
	}

	switch ClassifyPushStatus(status) {
	case PushResultOK:
		return DeviceOutcome{Endpoint: device.Endpoint, OK: true}
	case PushResultGone:
		f.logger.Info("消滅した購読を検出しました",
			slog.String("account_id", device.AccountID),
			slog.Int("http_status", status),
		)
		return DeviceOutcome{
			Endpoint:     device.Endpoint,
			ShouldRemove: true,
			Err:          fmt.Errorf("push service returned status %d", status),
		}
	default:
		f.logger.Warn("Push送信が一時的に失敗しました",
			slog.String("account_id", device.AccountID),
			slog.Int("http_status", status),
		)
		return DeviceOutcome{
			Endpoint: device.Endpoint,
			Err:      fmt.Errorf("push service returned status %d", status),
		}
	}
}
