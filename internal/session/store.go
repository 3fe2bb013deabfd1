package session

import (
	"context"
	"sync"
)

// Store はセッションを永続化するキー・バリューストア。
// 実装は並行アクセスに対して安全でなければならない。
type Store interface {
	// Get はキーの値を返す。存在しない場合は ok が false になる。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set はキーに値を保存する。
	Set(ctx context.Context, key, value string) error
	// Delete はキーを削除する。存在しないキーの削除はエラーにしない。
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStore はプロセス内のメモリに保持するStore。
// テストやセッションを残したくないコンソールで使う。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get はキーの値を返す。
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok, nil
}

// Set はキーに値を保存する。
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Delete はキーを削除する。
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len は保存されているキーの数を返す。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
