package addr

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// Default はアドレス未指定時に使うノードアドレス
const Default = "127.0.0.1:4000"

// Addr はIPv4アドレスとポートの組
type Addr struct {
	Host string
	Port int
}

// Parse は "host:port" 形式の文字列を検証してAddrに変換する
func Parse(s string) (Addr, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, errors.Wrapf(err, "invalid address %q", s)
	}

	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return Addr{}, errors.Errorf("not a valid IPv4 address: %s", s)
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return Addr{}, errors.Errorf("port must be an integer: %s", s)
	}
	if p < 1 || p > 65535 {
		return Addr{}, errors.Errorf("port out of range: %s", s)
	}

	return Addr{Host: ip.To4().String(), Port: p}, nil
}

// Valid は文字列が有効なノードアドレスかどうかを返す
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
