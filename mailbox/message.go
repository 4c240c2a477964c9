package mailbox

// Message is the ordered triple a fiber sends and receives: sender name,
// message type, and an opaque content value. Messages are values, copied
// on send; there is no sharing between sender and receiver.
type Message struct {
	Sender  string
	Type    string
	Content interface{}
}
