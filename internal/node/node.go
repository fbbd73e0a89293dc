package node

import (
	"maps"
	"slices"
	"sync"

	"kv-store/internal/logger"
)

// Store はKVSの基本操作を定義するインターフェース
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Snapshot() map[string]string
}

// PeerRegistry は既知ピアの集合を定義するインターフェース
type PeerRegistry interface {
	AddPeer(addr string) bool
	Peers() []string
}

// Ensure Node implements Store and PeerRegistry
var (
	_ Store        = (*Node)(nil)
	_ PeerRegistry = (*Node)(nil)
)

// Node は1プロセスが保持するストアとピア一覧を所有する。
// 両者は同じロックで保護され、外部にはコピーのみを返す。
type Node struct {
	addr string

	mu    sync.RWMutex
	data  map[string]string
	peers []string
	known map[string]struct{}
}

// New は新しいノードを作成する
func New(addr string) *Node {
	return &Node{
		addr:  addr,
		data:  make(map[string]string),
		known: make(map[string]struct{}),
	}
}

// Addr は自ノードのアドレスを返す
func (n *Node) Addr() string {
	return n.addr
}

// Get はキーに対応する値を取得する
func (n *Node) Get(key string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	value, exists := n.data[key]
	return value, exists
}

// Set はキーに値を設定する（既存の値は無条件に上書き）
func (n *Node) Set(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.data[key] = value
}

// Snapshot はストア全体のコピーを返す
func (n *Node) Snapshot() map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return maps.Clone(n.data)
}

// Merge はスナップショットをSetと同じ上書き規則で取り込み、適用件数を返す
func (n *Node) Merge(snapshot map[string]string) int {
	if len(snapshot) == 0 {
		return 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for k, v := range snapshot {
		n.data[k] = v
	}
	return len(snapshot)
}

// AddPeer は未登録かつ自ノード以外のアドレスをピアとして登録する。
// 登録した場合にtrueを返す。
func (n *Node) AddPeer(addr string) bool {
	if addr == "" || addr == n.addr {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.known[addr]; exists {
		return false
	}
	n.known[addr] = struct{}{}
	n.peers = append(n.peers, addr)

	logger.Info(n.addr, "Peer %s registered (peers: %d)", addr, len(n.peers))
	return true
}

// HasPeer はアドレスが登録済みかどうかを返す
func (n *Node) HasPeer(addr string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	_, exists := n.known[addr]
	return exists
}

// Peers は登録順のピア一覧のコピーを返す
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return slices.Clone(n.peers)
}

// PeerCount はピア数を返す
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// Keys はソート済みの全キーを返す
func (n *Node) Keys() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	keys := make([]string, 0, len(n.data))
	for k := range n.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Size はデータストアのサイズを返す
func (n *Node) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.data)
}
