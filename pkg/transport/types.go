package transport

// Sender sends one chunk at a time.
// Send returns nil when the chunk is accepted, ErrBusy when another chunk
// is still in flight, or another error when the chunk can not be sent.
type Sender interface {
	Send(p []byte) error
}

// CompletionHandler is notified when an accepted chunk finished sending.
type CompletionHandler interface {
	SendComplete(err error)
}

// Receiver accepts inbound bytes. p is only valid during the call.
type Receiver interface {
	ReceiveBytes(p []byte)
}

// ReceiveFunc is the func form of Receiver.
type ReceiveFunc func(p []byte)

// ReceiveBytes implements Receiver.
func (f ReceiveFunc) ReceiveBytes(p []byte) {
	f(p)
}
