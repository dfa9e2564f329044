package notify

import (
	"encoding/json"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/remindcast/internal/i18n"
	"github.com/hitoshi/remindcast/internal/model"
)

const (
	defaultIcon  = "/icons/icon-192.png"
	defaultBadge = "/icons/badge-72.png"
	defaultURL   = "/reminders"
)

// Payload はデバイスへ配信する通知のJSONボディ。
type Payload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Icon   string `json:"icon"`
	Badge  string `json:"badge"`
	URL    string `json:"url,omitempty"`
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}

// stripPolicy は通知文言から全HTMLタグを除去するポリシー。
var stripPolicy = bluemonday.StrictPolicy()

// BuildPayload はアカウントの言語設定と期日件数から通知ペイロードを構築する。
// 文言はプレーンテキストとして扱い、カタログ由来のHTMLタグは除去する。
func BuildPayload(account *model.Account, count int) ([]byte, error) {
	title, body := i18n.NotificationText(account.Language, count)

	p := Payload{
		Title:  stripPolicy.Sanitize(title),
		Body:   stripPolicy.Sanitize(body),
		Icon:   defaultIcon,
		Badge:  defaultBadge,
		URL:    defaultURL,
		UserID: account.ID,
		Count:  count,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("通知ペイロードのエンコードに失敗しました: %w", err)
	}
	return data, nil
}
