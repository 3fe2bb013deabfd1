// Package console は管理コンソール cmsctl のコマンドを提供する。
//
// ブラウザの管理画面と同じ手順でゲートウェイ経由のログイン・ログアウトを行い、
// 取得したセッションでCMS APIを呼び出す。セッションは session.Manager が管理し、
// SQLiteファイルに永続化するためコマンドの実行をまたいで維持される。
package console
