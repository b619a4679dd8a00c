package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushfan/internal/common"
)

// namedChannel is a trivial Channel used to distinguish registry entries.
type namedChannel struct {
	id string
}

func (n *namedChannel) Send(ctx context.Context, recipients []string, metadata []Metadata) ([]Result, error) {
	return make([]Result, len(recipients)), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	ch := &namedChannel{id: "a"}
	reg.Register("push", ch)

	got, err := reg.Get("push")
	require.NoError(t, err)
	assert.Same(t, ch, got)
}

func TestRegistry_RegisterReplacesPriorEntry(t *testing.T) {
	reg := NewRegistry()
	first := &namedChannel{id: "a"}
	second := &namedChannel{id: "b"}

	reg.Register("x", first)
	reg.Register("x", second)

	got, err := reg.Get("x")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
}

func TestRegistry_GetUnknownName(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	var notRegistered *common.NotRegisteredError
	require.ErrorAs(t, err, &notRegistered)
	assert.Equal(t, "missing", notRegistered.Name)
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry()
	reg.Register("push", &namedChannel{})
	reg.Clear()

	_, err := reg.Get("push")
	assert.Error(t, err)
	assert.Empty(t, reg.Names())
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("webpush", &namedChannel{})
	reg.Register("fcm", &namedChannel{})

	assert.Equal(t, []string{"fcm", "webpush"}, reg.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Register(fmt.Sprintf("ch-%d", i%10), &namedChannel{})
		}()
		go func() {
			defer wg.Done()
			_, _ = reg.Get(fmt.Sprintf("ch-%d", i%10))
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Names(), 10)
}
