package api

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Packet is a relayed message kept as raw fields,
// so the server forwards whatever the sender put into it.
type Packet map[string]json.RawMessage

// ReadPacket parses a message from a client and checks that it can be relayed.
func ReadPacket(data []byte) (Packet, MessageType, Id, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p == nil {
		return nil, "", "", fmt.Errorf("%w: not an object", ErrMalformed)
	}
	var t MessageType
	if err := p.field("type", &t); err != nil {
		return nil, "", "", err
	}
	if !t.IsRelayed() {
		return nil, t, "", fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	var target Id
	if err := p.field("target", &target); err != nil {
		return nil, t, "", err
	}
	if target.IsEmpty() {
		return nil, t, "", ErrNoTarget
	}
	return p, t, target, nil
}

func (p Packet) field(key string, v any) error {
	raw, ok := p[key]
	if !ok {
		return fmt.Errorf("%w: no %v", ErrMalformed, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: bad %v", ErrMalformed, key)
	}
	return nil
}

// Stamp sets the sender of the packet and encodes it back.
func (p Packet) Stamp(from Id) ([]byte, error) {
	raw, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	p["from"] = raw
	return json.Marshal(p)
}
