package prior

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetFn    func(ctx context.Context, key, field string) (string, error)
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
	hsetFn    func(ctx context.Context, key string, fields map[string]string) error
}

func (m *mockStore) HGet(ctx context.Context, key, field string) (string, error) {
	if m.hgetFn != nil {
		return m.hgetFn(ctx, key, field)
	}
	return "", nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
