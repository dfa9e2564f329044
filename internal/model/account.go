// Package model はドメインモデルを定義する。
package model

import "time"

// Account は通知配信対象のユーザーアカウントを表す。
// タイムゾーンと通知時刻はユーザーのローカル設定であり、
// 配信判定はすべてこのタイムゾーンに基づくローカル日付で行う。
type Account struct {
	ID               string
	Timezone         string     // IANAタイムゾーン名（デフォルト: "UTC"）
	Language         string     // 通知文言の言語コード（デフォルト: "en"）
	NotificationTime string     // 通知時刻。ローカル時刻のHH:MM形式（デフォルト: "12:00"）
	LastDeliveredAt  *time.Time // 最終配信日時（UTC）。一度も配信していない場合はnil。
	Devices          []Device
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Location はアカウントのタイムゾーンをtime.Locationとして返す。
// タイムゾーン名が不正または空の場合はUTCにフォールバックする。
func (a *Account) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnabledDevices は通知が有効なデバイスのみを返す。
func (a *Account) EnabledDevices() []Device {
	enabled := make([]Device, 0, len(a.Devices))
	for _, d := range a.Devices {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// Device はWeb Push購読済みのデバイスを表す。
// endpointはアカウント内で一意なキーとして扱う。
type Device struct {
	AccountID string
	Endpoint  string // Push サービスのエンドポイントURL
	P256dh    string // 暗号化用公開鍵
	Auth      string // 認証シークレット
	Enabled   bool
	CreatedAt time.Time
}
