package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/service"
)

func newService(t *testing.T, path string) service.Service {
	t.Helper()
	svc, err := service.New(service.Config{Path: path})
	require.NoError(t, err)
	return svc
}

func TestAddAndGet(t *testing.T) {
	r := New()
	svc := newService(t, "math")

	require.NoError(t, r.Add(svc))

	got, ok := r.Get("math")
	require.True(t, ok)
	assert.Equal(t, "math", got.Path())

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestAddValidation(t *testing.T) {
	r := New()

	assert.Error(t, r.Add(nil))

	for _, path := range []string{"/a", "a/", "a//b"} {
		bad, err := service.New(service.Config{Path: path})
		require.NoError(t, err)
		assert.Error(t, r.Add(bad), path)
	}

	nested, err := service.New(service.Config{Path: "internal/registry"})
	require.NoError(t, err)
	assert.NoError(t, r.Add(nested))
}

func TestDuplicatePathRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(newService(t, "math")))

	err := r.Add(newService(t, "math"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicatePath))
	assert.Equal(t, 1, r.Len(), "failed add must not alter the registry")
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := New()
	for _, path := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Add(newService(t, path)))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Paths())

	entries := r.List()
	require.Len(t, entries, 3)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "zeta", entries[0].Path)
}

func TestRemove(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(newService(t, "a")))
	require.NoError(t, r.Add(newService(t, "b")))

	svc, ok := r.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", svc.Path())

	_, ok = r.Remove("a")
	assert.False(t, ok)

	// removal frees the path for re-registration with a fresh index
	require.NoError(t, r.Add(newService(t, "a")))
	assert.Equal(t, []string{"b", "a"}, r.Paths())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			svc, err := service.New(service.Config{Path: fmt.Sprintf("svc-%d", i)})
			assert.NoError(t, err)
			assert.NoError(t, r.Add(svc))
		}(i)
		go func() {
			defer wg.Done()
			r.List()
			r.Len()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
}
