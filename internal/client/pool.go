package client

import (
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Pool はアドレスごとにClientを1つ保持する
type Pool struct {
	timeout time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewPool は新しいプールを作成する
func NewPool(timeout time.Duration) *Pool {
	return &Pool{
		timeout: timeout,
		clients: make(map[string]*Client),
	}
}

// Get はアドレスに対応するClientを返す。未作成なら作成する。
func (p *Pool) Get(addr string) (*Client, error) {
	p.mu.RLock()
	if c, ok := p.clients[addr]; ok {
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	c, err := Dial(addr, p.timeout)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[addr]; ok {
		_ = c.Close()
		return existing, nil
	}
	p.clients[addr] = c
	return c, nil
}

// Size は保持しているClient数を返す
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// Close は全てのClientを閉じる
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for addr, c := range p.clients {
		err = multierr.Append(err, c.Close())
		delete(p.clients, addr)
	}
	return err
}
