package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tacmesh/meshnode/crypto"
	"github.com/tacmesh/meshnode/envelope"
	"github.com/tacmesh/meshnode/model"
	"github.com/tacmesh/meshnode/situational"
	"github.com/tacmesh/meshnode/store"
	"github.com/tacmesh/meshnode/transport"
)

// Node is the running tactical mesh messaging node: one identity, a
// durable store, zero or more transports, and the transmit/receive loops
// that bind them.
type Node struct {
	identity *crypto.Identity
	db       *store.Store
	links    []transport.Transport
	queue    *outboundQueue
	obs      *observerSet
	cfg      Config
	logger   *logrus.Entry

	stopCh chan struct{}
	wg     sync.WaitGroup

	verificationFailures uint64
	codecErrors          uint64
}

// New builds a Node over an already-constructed identity, store, and
// transport set. Transports are not started until Start is called.
func New(identity *crypto.Identity, db *store.Store, links []transport.Transport, cfg Config) *Node {
	return &Node{
		identity: identity,
		db:       db,
		links:    links,
		queue:    newOutboundQueue(),
		obs:      newObserverSet(cfg.ObserverDeadline),
		cfg:      cfg,
		logger:   logrus.WithField("component", "node").WithField("node_id", identity.NodeID),
		stopCh:   make(chan struct{}),
	}
}

// selfIdentity is the NodeIdentity this node advertises on the wire and
// registers with its own store.
func (n *Node) selfIdentity() model.NodeIdentity {
	return model.NodeIdentity{
		NodeID:    n.identity.NodeID,
		Callsign:  n.cfg.Callsign,
		Unit:      n.cfg.Unit,
		Rank:      n.cfg.Rank,
		Role:      n.cfg.Role,
		Clearance: n.cfg.Clearance,
		EncPublic: model.Key(n.identity.EncPublic),
		VerifyKey: model.Key(n.identity.VerifyKey()),
		Created:   n.identity.Created,
	}
}

// Start registers the node's own identity, starts every transport, and
// launches the transmit and receive loops.
func (n *Node) Start() error {
	if err := n.db.UpsertNode(n.selfIdentity()); err != nil {
		return fmt.Errorf("runtime: registering self identity: %w", err)
	}

	for _, t := range n.links {
		if err := t.Start(); err != nil {
			n.logger.WithError(err).WithField("transport", t.Name()).Error("transport failed to start")
			return fmt.Errorf("runtime: starting transport %s: %w", t.Name(), err)
		}
	}

	n.wg.Add(2)
	go n.transmitLoop()
	go n.receiveLoop()

	return nil
}

// Stop signals both loops, waits up to cfg.ShutdownDeadline for the
// outbound queue to drain, then stops every transport.
func (n *Node) Stop() error {
	close(n.stopCh)

	deadline := time.After(n.cfg.ShutdownDeadline)
	waitDone := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-deadline:
		n.logger.Warn("shutdown deadline elapsed before loops drained")
	}

	var firstErr error
	for _, t := range n.links {
		if err := t.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendMessage constructs a TacticalMessage, persists it, and enqueues it
// for transmission. If recipients are given and their encryption keys are
// known to the store, per-recipient sealed payloads are attached and the
// plaintext payload is withheld from the wire.
func (n *Node) SendMessage(topic string, payload any, recipients []string, priority model.Priority, classification string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("runtime: encoding payload: %w", err)
	}

	msg := model.TacticalMessage{
		MsgID:          uuid.NewString(),
		MsgType:        topic,
		Topic:          topic,
		Sender:         n.identity.NodeID,
		Recipients:     recipients,
		Classification: classification,
		Priority:       priority,
		Timestamp:      time.Now().UTC(),
		Payload:        raw,
	}

	if len(recipients) > 0 {
		n.sealForRecipients(&msg, raw)
	}

	if _, err := n.db.StoreMessage(msg); err != nil {
		n.logger.WithError(err).Warn("failed to persist outbound message")
	}

	n.queue.Push(msg)
	return nil
}

func (n *Node) sealForRecipients(msg *model.TacticalMessage, plaintext []byte) {
	sealed := make(map[string][]byte, len(msg.Recipients))
	for _, recipientID := range msg.Recipients {
		rec, ok, err := n.db.GetNode(recipientID)
		if err != nil || !ok {
			n.logger.WithField("recipient", recipientID).Warn("recipient enc key unknown, leaving unsealed for them")
			continue
		}
		ct, err := crypto.Seal(plaintext, [32]byte(rec.Identity.EncPublic), n.identity.EncPrivate)
		if err != nil {
			n.logger.WithError(err).WithField("recipient", recipientID).Warn("sealing payload failed")
			continue
		}
		sealed[recipientID] = ct
	}
	if len(sealed) > 0 {
		msg.SealedPayloads = sealed
		if len(sealed) == len(msg.Recipients) {
			msg.Payload = nil
		}
	}
}

// UpdatePosition upserts the node's own position and broadcasts it on the
// blue_force topic.
func (n *Node) UpdatePosition(lat, lon, alt, accuracy, speed, course float64) error {
	pos := model.Position{
		NodeID:    n.identity.NodeID,
		Lat:       lat,
		Lon:       lon,
		Alt:       alt,
		Accuracy:  accuracy,
		Speed:     speed,
		Course:    course,
		Timestamp: time.Now().UTC(),
	}
	if err := pos.Validate(); err != nil {
		return fmt.Errorf("runtime: invalid position: %w", err)
	}
	if err := n.db.UpsertPosition(pos); err != nil {
		n.logger.WithError(err).Warn("failed to persist own position")
	}

	return n.SendMessage(model.TopicBlueForce, pos, nil, model.PriorityPriority, "")
}

// Subscribe registers an observer for every authenticated inbound message.
func (n *Node) Subscribe(buffer int) (ObserverToken, <-chan Delivery) {
	return n.obs.Subscribe(buffer)
}

// Unsubscribe removes a previously registered observer.
func (n *Node) Unsubscribe(tok ObserverToken) {
	n.obs.Unsubscribe(tok)
}

// ActiveNodes reads through to the store.
func (n *Node) ActiveNodes() ([]store.NodeRecord, error) {
	return n.db.ActiveNodes(n.cfg.ActiveWindow)
}

// Messages reads through to the store. An empty topic returns messages
// across all topics.
func (n *Node) Messages(topic string, limit int) ([]model.TacticalMessage, error) {
	return n.db.MessagesByTopic(topic, limit)
}

// TacticalPicture reads through to the situational engine.
func (n *Node) TacticalPicture(bbox *situational.BoundingBox) (situational.FeatureCollection, error) {
	return situational.TacticalPicture(n.db, n.cfg.ActiveWindow, bbox)
}

// VerificationFailures reports the running count of frames dropped for a
// bad signature, an empty signature, or an inconsistent rekey.
func (n *Node) VerificationFailures() uint64 {
	return atomic.LoadUint64(&n.verificationFailures)
}

// CodecErrors reports the running count of frames dropped because the
// envelope could not be parsed.
func (n *Node) CodecErrors() uint64 {
	return atomic.LoadUint64(&n.codecErrors)
}

func (n *Node) transmitLoop() {
	defer n.wg.Done()

	for {
		msg, ok := n.queue.TryPop()
		if !ok {
			select {
			case <-n.stopCh:
				return
			case <-n.queue.notifyCh:
				continue
			case <-time.After(n.cfg.QueueWait):
				continue
			}
		}

		wire, err := envelope.Sign(n.selfIdentity(), msg, n.identity.SignPrivate)
		if err != nil {
			n.logger.WithError(err).Error("failed to sign outbound message, dropping")
			continue
		}

		var wg sync.WaitGroup
		for _, t := range n.links {
			wg.Add(1)
			go func(t transport.Transport) {
				defer wg.Done()
				if err := t.Send(wire, ""); err != nil {
					n.logger.WithError(err).WithField("transport", t.Name()).Warn("send failed")
				}
			}(t)
		}
		wg.Wait()
	}
}

func (n *Node) receiveLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.stopCh:
			return
		default:
		}

		gotAny := false
		for _, t := range n.links {
			frame, ok := t.Recv()
			if !ok {
				continue
			}
			gotAny = true
			n.handleFrame(frame)
		}

		if !gotAny {
			select {
			case <-n.stopCh:
				return
			case <-time.After(n.cfg.ReceiveIdleYield):
			}
		}
	}
}

func (n *Node) handleFrame(frame transport.Frame) {
	env, err := envelope.Verify(frame.Data)
	if err != nil {
		if errors.Is(err, envelope.ErrNoSignature) || errors.Is(err, envelope.ErrVerificationFailed) {
			atomic.AddUint64(&n.verificationFailures, 1)
		} else {
			atomic.AddUint64(&n.codecErrors, 1)
		}
		n.logger.WithError(err).Debug("dropping frame that failed verification")
		return
	}

	if err := n.db.UpsertNode(env.Sender); err != nil {
		if errors.Is(err, store.ErrKeyMismatch) {
			atomic.AddUint64(&n.verificationFailures, 1)
			n.logger.WithField("sender", env.Sender.NodeID).Warn("rejecting frame: verify key differs from recorded identity")
		} else {
			n.logger.WithError(err).WithField("sender", env.Sender.NodeID).Warn("store failure on sender upsert, dropping frame")
		}
		return
	}

	if env.Message.Expired(time.Now().UTC()) {
		n.logger.WithField("msg_id", env.Message.MsgID).Debug("dropping expired message")
		return
	}

	// The stored copy keeps the wire form so its signature still verifies;
	// the delivered copy gets the sealed payload opened if it is addressed
	// to this node.
	inserted, err := n.db.StoreMessage(env.Message)
	if err != nil {
		n.logger.WithError(err).Warn("store failure on inbound message, not delivering to observers")
		return
	}
	if !inserted {
		return
	}

	delivered := env.Message
	if ct, ok := delivered.SealedPayloads[n.identity.NodeID]; ok && len(delivered.Payload) == 0 {
		plaintext, openErr := crypto.Open(ct, [32]byte(env.Sender.EncPublic), n.identity.EncPrivate)
		if openErr != nil {
			n.logger.WithError(openErr).WithField("sender", env.Sender.NodeID).Warn("could not open sealed payload")
		} else {
			delivered.Payload = plaintext
		}
	}

	if delivered.Topic == model.TopicBlueForce {
		n.applyPositionPayload(delivered)
	}

	n.obs.Deliver(delivered)
}

func (n *Node) applyPositionPayload(msg model.TacticalMessage) {
	var pos model.Position
	if err := json.Unmarshal(msg.Payload, &pos); err != nil {
		n.logger.WithError(err).Debug("blue_force payload is not a position, skipping position upsert")
		return
	}

	// A position belongs to the node that signed the frame, whatever
	// node_id the payload claims. Overriding it keeps one signer from
	// rewriting another node's track.
	if pos.NodeID != "" && pos.NodeID != msg.Sender {
		n.logger.WithFields(logrus.Fields{
			"sender":  msg.Sender,
			"claimed": pos.NodeID,
		}).Warn("position payload claims another node_id, binding to signer")
	}
	pos.NodeID = msg.Sender

	if err := n.db.UpsertPosition(pos); err != nil {
		n.logger.WithError(err).Debug("position upsert rejected")
	}
}
