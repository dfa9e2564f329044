// Package i18n は通知文言のローカライズカタログを提供する。
// 言語コードはアカウントの言語設定から渡され、未対応言語は英語に
// フォールバックする。
package i18n

import "fmt"

// DefaultLanguage はフォールバック先の言語コード。
const DefaultLanguage = "en"

// entry は1言語分の通知文言テンプレート。
type entry struct {
	title    string
	bodyOne  string
	bodyMany string // %d を件数で置換する
}

var catalog = map[string]entry{
	"en": {
		title:    "Reminders due",
		bodyOne:  "You have 1 reminder due today.",
		bodyMany: "You have %d reminders due today.",
	},
	"ja": {
		title:    "期日のリマインダー",
		bodyOne:  "今日が期日のリマインダーが1件あります。",
		bodyMany: "今日が期日のリマインダーが%d件あります。",
	},
	"de": {
		title:    "Fällige Erinnerungen",
		bodyOne:  "Du hast heute 1 fällige Erinnerung.",
		bodyMany: "Du hast heute %d fällige Erinnerungen.",
	},
}

// NotificationText は言語コードと期日件数から通知のタイトルと本文を返す。
func NotificationText(lang string, count int) (title, body string) {
	e, ok := catalog[lang]
	if !ok {
		e = catalog[DefaultLanguage]
	}
	if count == 1 {
		return e.title, e.bodyOne
	}
	return e.title, fmt.Sprintf(e.bodyMany, count)
}

// Supported は言語コードがカタログに存在するかを返す。
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}
