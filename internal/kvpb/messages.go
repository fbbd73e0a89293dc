package kvpb

// GetRequest は Key の現在値を問い合わせる
type GetRequest struct {
	Key string `json:"key"`
}

// GetReply はキーの値を返す。未設定のキーでは Defined が false で Value は空
type GetReply struct {
	Value   string `json:"value,omitempty"`
	Defined bool   `json:"defined"`
}

// SetRequest は Key=Value を書き込む。ピア間の更新では Broadcast が false
type SetRequest struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Broadcast bool   `json:"broadcast"`
}

// SetReply は保存した値で書き込みに応答する
type SetReply struct {
	Value string `json:"value"`
}

// ListRequest はフィールドを持たない
type ListRequest struct{}

// StoreReply はノードのストア全体のスナップショット
type StoreReply struct {
	Store map[string]string `json:"store"`
}

// RegisterRequest は呼び出し元自身のアドレスをピアに通知する
type RegisterRequest struct {
	IP string `json:"ip"`
}
