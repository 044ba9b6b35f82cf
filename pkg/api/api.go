// Package api defines the signaling protocol shared by the server and peers.
//
// Every message is a JSON object with a required type field. Negotiation messages
// carry their payload under the key named after the payload kind:
//
//	offer         - {"type":"offer","target":"<id>","offer":{"type":"offer","sdp":"..."}}
//	answer        - {"type":"answer","target":"<id>","answer":{"type":"answer","sdp":"..."}}
//	ice-candidate - {"type":"ice-candidate","target":"<id>","candidate":{"candidate":"...","sdpMid":"0"}}
//
// The server relays them to the target with the from field set to the sender id,
// whatever the sender has put there. Presence events go from the server only:
//
//	{"type":"connect","id":"<your id>","peers":["<id>",...]}
//	{"type":"new-client","id":"<id>"}
//	{"type":"client-disconnected","id":"<id>"}
package api

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

type Id string

func (i Id) String() string { return string(i) }
func (i Id) IsEmpty() bool  { return i == "" }

type MessageType string

const (
	Connect            MessageType = "connect"
	NewClient          MessageType = "new-client"
	ClientDisconnected MessageType = "client-disconnected"
	Offer              MessageType = "offer"
	Answer             MessageType = "answer"
	IceCandidate       MessageType = "ice-candidate"
)

// IsRelayed tells if the type is a unicast negotiation message.
func (t MessageType) IsRelayed() bool { return t == Offer || t == Answer || t == IceCandidate }

var (
	ErrMalformed       = errors.New("malformed message")
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrNoTarget        = errors.New("no target")
)

type Envelope struct {
	Type   MessageType `json:"type"`
	Target Id          `json:"target,omitempty"`
	From   Id          `json:"from,omitempty"`

	// presence
	Id    Id   `json:"id,omitempty"`
	Peers []Id `json:"peers,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Payload returns the raw payload matching the message type.
func (e *Envelope) Payload() json.RawMessage {
	switch e.Type {
	case Offer:
		return e.Offer
	case Answer:
		return e.Answer
	case IceCandidate:
		return e.Candidate
	}
	return nil
}

// HasPayload tells if the payload exists and is not JSON null.
func (e *Envelope) HasPayload() bool {
	p := e.Payload()
	return len(p) > 0 && string(p) != "null"
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if !e.HasPayload() {
		return fmt.Errorf("%w: no %v payload", ErrMalformed, e.Type)
	}
	return json.Unmarshal(e.Payload(), v)
}

// NewSignal makes a relayed message with the payload put under its type key.
func NewSignal(t MessageType, target Id, payload any) (Envelope, error) {
	if !t.IsRelayed() {
		return Envelope{}, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}
	if target.IsEmpty() {
		return Envelope{}, ErrNoTarget
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	e := Envelope{Type: t, Target: target}
	switch t {
	case Offer:
		e.Offer = raw
	case Answer:
		e.Answer = raw
	case IceCandidate:
		e.Candidate = raw
	}
	return e, nil
}

func ConnectEvent(id Id, peers []Id) Envelope { return Envelope{Type: Connect, Id: id, Peers: peers} }
func NewClientEvent(id Id) Envelope           { return Envelope{Type: NewClient, Id: id} }
func DisconnectEvent(id Id) Envelope          { return Envelope{Type: ClientDisconnected, Id: id} }

func Wrap(e Envelope) ([]byte, error) { return json.Marshal(e) }

func Unwrap(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("%w: no type", ErrMalformed)
	}
	return &e, nil
}
