// Package config は各バイナリ（gateway、cmsctl、devupstream）の設定を環境変数から読み込む。
//
// カレントディレクトリに .env があれば先に読み込み、既に設定済みの
// 環境変数は上書きしない。
package config
