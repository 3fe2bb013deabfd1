// Package devupstream はローカル開発と結合テスト用の上流CMSサーバーを提供する。
//
// ゲートウェイの転送先として、管理者のログイン・ログアウト・プロフィール取得と
// マルチパートのエコーを実装する。応答は {code, msg, data} 形式で、
// code が0のときだけ成功を表す。
package devupstream
