package node

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const self = "127.0.0.1:4000"

func TestNewNode(t *testing.T) {
	n := New(self)

	assert.Equal(t, self, n.Addr())
	assert.Zero(t, n.Size())
	assert.Zero(t, n.PeerCount())
	assert.Empty(t, n.Snapshot())
}

func TestNodeGetSet(t *testing.T) {
	n := New(self)

	// never set
	_, ok := n.Get("key1")
	assert.False(t, ok)

	n.Set("key1", "value1")
	value, ok := n.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", value)

	// overwrite
	n.Set("key1", "value2")
	value, ok = n.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value2", value)

	_, ok = n.Get("nonexistent")
	assert.False(t, ok)
}

func TestNodeSnapshotIsCopy(t *testing.T) {
	n := New(self)
	n.Set("a", "1")

	snap := n.Snapshot()
	snap["a"] = "changed"
	snap["b"] = "2"

	value, _ := n.Get("a")
	assert.Equal(t, "1", value)
	_, ok := n.Get("b")
	assert.False(t, ok)
}

func TestNodeMerge(t *testing.T) {
	n := New(self)
	n.Set("a", "1")
	n.Set("b", "1")

	applied := n.Merge(map[string]string{"b": "2", "c": "3"})
	assert.Equal(t, 2, applied)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, n.Snapshot())

	assert.Zero(t, n.Merge(nil))
}

func TestNodeAddPeer(t *testing.T) {
	n := New(self)

	assert.True(t, n.AddPeer("127.0.0.1:4001"))
	assert.False(t, n.AddPeer("127.0.0.1:4001"), "duplicate must be ignored")
	assert.False(t, n.AddPeer(self), "self must be ignored")
	assert.False(t, n.AddPeer(""))
	assert.True(t, n.AddPeer("127.0.0.1:4002"))

	assert.Equal(t, []string{"127.0.0.1:4001", "127.0.0.1:4002"}, n.Peers())
	assert.True(t, n.HasPeer("127.0.0.1:4002"))
	assert.False(t, n.HasPeer(self))
	assert.Equal(t, 2, n.PeerCount())
}

func TestNodePeersIsCopy(t *testing.T) {
	n := New(self)
	n.AddPeer("127.0.0.1:4001")

	peers := n.Peers()
	peers[0] = "mutated"

	assert.Equal(t, []string{"127.0.0.1:4001"}, n.Peers())
}

func TestNodeKeys(t *testing.T) {
	n := New(self)

	n.Set("key3", "value3")
	n.Set("key1", "value1")
	n.Set("key2", "value2")

	assert.Equal(t, []string{"key1", "key2", "key3"}, n.Keys())
	assert.Equal(t, 3, n.Size())
}

func TestNodeConcurrentAccess(t *testing.T) {
	n := New(self)

	var wg sync.WaitGroup
	numGoroutines := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(4)
		go func(i int) {
			defer wg.Done()
			n.Set(string(rune('a'+i%26)), "value")
		}(i)
		go func(i int) {
			defer wg.Done()
			n.Get(string(rune('a' + i%26)))
		}(i)
		go func(i int) {
			defer wg.Done()
			n.AddPeer(fmt.Sprintf("127.0.0.1:%d", 5000+i%10))
		}(i)
		go func() {
			defer wg.Done()
			_ = n.Snapshot()
			_ = n.Peers()
		}()
	}

	wg.Wait()

	assert.Equal(t, 26, n.Size())
	assert.Equal(t, 10, n.PeerCount())
}
