// Package session は管理コンソールの認証セッションを管理する。
//
// Manager はセッションの唯一の所有者で、起動時に永続化ストアから
// セッションを復元し（Bootstrap）、ログイン・ログアウトでのみ
// 永続化データを書き換える。他のコンポーネントは State と Token で
// 現在の状態を読むだけにする。
//
// 状態遷移:
//
//	bootstrapping → unauthenticated | authenticated
//	unauthenticated → authenticated （Login成功）
//	authenticated → unauthenticated （Logout、結果によらず必ず）
//
// ログアウトは上流での失効をベストエフォートで試み、CORS起因の失敗に限り
// 資格情報なしの失効APIを1度だけ呼ぶ。いずれの結果でもローカルの
// セッション削除とリダイレクトは必ず1度実行される。
package session
