package types

// Message type discriminators shared by the wire schema.
const (
	MsgPing     = "ping"
	MsgPong     = "pong"
	MsgListen   = "listen"
	MsgUnlisten = "unlisten"
	MsgHistory  = "history"
	MsgNotice   = "notice"
	MsgInit     = "init"
	MsgUpdate   = "update"
	MsgError    = "error"

	StatusSuccess = "success"
	StatusError   = "error"
)

// RequestData is the payload of an inbound listen/unlisten/history message.
// Either Tag is set, or enough fields are present to synthesize one.
type RequestData struct {
	Tag      string `json:"tag"`
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Chain    string `json:"chain"`
	Address  string `json:"address"`
	Pool     string `json:"pool"`
	Interval string `json:"interval"`
	Start    int64  `json:"start"`
	Limit    int    `json:"limit"`
}

// Request is an inbound client message.
type Request struct {
	Type string      `json:"type"`
	Data RequestData `json:"data"`
}

// InitMessage answers a listen request with the subscription outcome and,
// on success, the initial snapshot.
type InitMessage struct {
	Type    string   `json:"type"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Tag     string   `json:"tag"`
	Data    []Candle `json:"data"`
}

// UpdateMessage carries one broadcast tick's candles.
type UpdateMessage struct {
	Type string   `json:"type"`
	Data []Candle `json:"data"`
}

// HistoryMessage answers a history request.
type HistoryMessage struct {
	Type string   `json:"type"`
	Data []Candle `json:"data"`
}

// NoticeMessage is sent on accept and on unlisten outcomes.
type NoticeMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
	IP      string `json:"ip,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// ErrorMessage reports any other per-request failure.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// NewInitError builds the init envelope for a failed listen request.
func NewInitError(tag, message string) InitMessage {
	return InitMessage{
		Type:    MsgInit,
		Status:  StatusError,
		Message: message,
		Tag:     tag,
		Data:    []Candle{},
	}
}
