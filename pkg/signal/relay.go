package signal

import (
	"errors"
	"sync"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network/websocket"
	"github.com/gofrs/uuid"
)

// Relay routes negotiation messages between clients
// and tells everyone when somebody comes or leaves.
type Relay struct {
	registry *Registry
	metrics  *Metrics
	newId    func() api.Id
	log      *logger.Logger

	// presence changes go one by one, so a client always sees
	// its own connect event before anything else
	presence sync.Mutex
}

func NewRelay(registry *Registry, metrics *Metrics, log *logger.Logger) *Relay {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Relay{registry: registry, metrics: metrics, newId: NewId, log: log}
}

// NewId makes a random unique client id.
func NewId() api.Id { return api.Id(uuid.Must(uuid.NewV4()).String()) }

// Connect registers a new client, sends it its id with the list
// of other clients and announces it to them.
func (r *Relay) Connect(ch Channel) (api.Id, error) {
	r.presence.Lock()
	defer r.presence.Unlock()

	id := r.newId()
	if err := r.registry.Register(id, ch); err != nil {
		return "", err
	}
	r.metrics.connected(r.registry.Len())

	var peers []api.Id
	for _, p := range r.registry.Ids() {
		if p != id {
			peers = append(peers, p)
		}
	}
	r.sendEvent(id, ch, api.ConnectEvent(id, peers))
	r.broadcast(id, api.NewClientEvent(id))
	r.log.Info().Str(logger.ClientField, id.String()).Int("clients", r.registry.Len()).Msg("Client has connected")
	return id, nil
}

// Disconnect removes the client and announces it to others.
// Safe to call more than once.
func (r *Relay) Disconnect(id api.Id) {
	r.presence.Lock()
	defer r.presence.Unlock()

	if !r.registry.Unregister(id) {
		return
	}
	r.metrics.connected(r.registry.Len())
	r.broadcast(id, api.DisconnectEvent(id))
	r.log.Info().Str(logger.ClientField, id.String()).Int("clients", r.registry.Len()).Msg("Client has disconnected")
}

// Handle relays one message from the client with the from id.
// The sender field is always set to from. Unknown targets are skipped
// without telling the sender. An error means the message was bad.
func (r *Relay) Handle(from api.Id, data []byte) error {
	packet, t, target, err := api.ReadPacket(data)
	if err != nil {
		r.metrics.malform()
		return err
	}
	ch, ok := r.registry.Resolve(target)
	if !ok {
		r.metrics.undeliver(t)
		r.log.Warn().
			Str(logger.ClientField, from.String()).
			Str("target", target.String()).
			Str("type", string(t)).
			Msg("Target not found")
		return nil
	}
	out, err := packet.Stamp(from)
	if err != nil {
		r.metrics.malform()
		return err
	}
	if !r.send(target, ch, out) {
		r.metrics.undeliver(t)
		return nil
	}
	r.metrics.relay(t)
	return nil
}

func (r *Relay) broadcast(except api.Id, e api.Envelope) {
	data, err := api.Wrap(e)
	if err != nil {
		r.log.Error().Err(err).Msg("broadcast")
		return
	}
	r.registry.ForEach(except, func(id api.Id, ch Channel) { r.send(id, ch, data) })
}

func (r *Relay) sendEvent(id api.Id, ch Channel, e api.Envelope) bool {
	data, err := api.Wrap(e)
	if err != nil {
		r.log.Error().Err(err).Msg("send")
		return false
	}
	return r.send(id, ch, data)
}

func (r *Relay) send(id api.Id, ch Channel, data []byte) bool {
	if err := ch.Send(data); err != nil {
		if errors.Is(err, websocket.ErrQueueFull) {
			r.metrics.drop()
		}
		r.log.Warn().Err(err).Str(logger.ClientField, id.String()).Msg("Message was not delivered")
		return false
	}
	return true
}
