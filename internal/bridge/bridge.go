package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
	"github.com/nerrad567/jughead-core/internal/infrastructure/mqtt"
)

const (
	commandQoS = 1
	stateQoS   = 1

	defaultEventBuffer = 64
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher is the subset of *dispatch.Dispatcher the bridge uses.
type Dispatcher interface {
	SendColorCommand(ctx context.Context, id device.DeviceID, c ball.Color) <-chan dispatch.Result
	BindAddress(id device.DeviceID, address string) error
	States() []device.DeviceState
	Subscribe(buffer int) (<-chan device.Event, func())
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	MQTT       MQTTClient
	Dispatcher Dispatcher
	Logger     Logger

	// EventBuffer is the registry subscription buffer. Defaults to 64.
	EventBuffer int
}

// Bridge connects the MQTT command bus to the dispatcher.
//
// Commands on jughead/command/ball/{id} are executed and acknowledged on
// jughead/ack/ball/{id}. Every registry event is republished as retained
// state on jughead/state/ball/{id}.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt        MQTTClient
	dispatcher  Dispatcher
	eventBuffer int

	ctx       context.Context
	ctxCancel context.CancelFunc
	unsub     func()
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Bridge. Call Start to begin processing.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, errors.New("bridge: mqtt client is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("bridge: dispatcher is required")
	}

	b := &Bridge{
		mqtt:        opts.MQTT,
		dispatcher:  opts.Dispatcher,
		eventBuffer: opts.EventBuffer,
		logger:      opts.Logger,
	}
	if b.eventBuffer <= 0 {
		b.eventBuffer = defaultEventBuffer
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b, nil
}

// Start publishes the current state of every ball, begins streaming state
// changes and subscribes to command topics.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		b.ctx, b.ctxCancel = context.WithCancel(context.WithoutCancel(ctx))

		for _, s := range b.dispatcher.States() {
			b.publishState(s)
		}

		events, unsub := b.dispatcher.Subscribe(b.eventBuffer)
		b.unsub = unsub
		b.wg.Add(1)
		go b.streamStates(events)

		topic := mqtt.Topics{}.AllBallCommands()
		if subErr := b.mqtt.Subscribe(topic, commandQoS, b.handleMessage); subErr != nil {
			err = fmt.Errorf("subscribe to commands: %w", subErr)
			return
		}
		b.getLogger().Info("bridge started", "topic", topic)
	})
	return err
}

// Stop unsubscribes, waits for pending acks and stops the state stream.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.ctxCancel == nil {
			return
		}
		if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllBallCommands()); err != nil {
			b.getLogger().Debug("unsubscribe on stop failed", "error", err)
		}
		b.ctxCancel()
		b.unsub()
		b.wg.Wait()
		b.getLogger().Info("bridge stopped")
	})
}

func (b *Bridge) streamStates(events <-chan device.Event) {
	defer b.wg.Done()
	for ev := range events {
		b.publishState(ev.State)
	}
}

func (b *Bridge) publishState(s device.DeviceState) {
	payload, err := json.Marshal(NewStateMessage(s))
	if err != nil {
		b.getLogger().Error("failed to marshal state", "ball", int(s.ID), "error", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.BallState(int(s.ID)), payload, stateQoS, true); err != nil {
		b.getLogger().Warn("failed to publish state", "ball", int(s.ID), "error", err)
	}
}

// handleMessage routes a message received on a command topic.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	category, topicID, ok := mqtt.ParseBallTopic(topic)
	if !ok || category != "command" {
		return fmt.Errorf("bridge: unexpected topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(topicID, NewAckError(CommandMessage{DeviceID: topicID}, "",
			ErrCodeInvalidCommand, fmt.Sprintf("Malformed command: %v", err)))
		return fmt.Errorf("bridge: parse command: %w", err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.DeviceID == 0 {
		cmd.DeviceID = topicID
	}
	if cmd.DeviceID != topicID {
		b.publishAck(topicID, NewAckError(cmd, "", ErrCodeInvalidParameters,
			fmt.Sprintf("device_id %d does not match topic ball %d", cmd.DeviceID, topicID)))
		return nil
	}

	b.getLogger().Debug("received command",
		"command_id", cmd.ID,
		"ball", cmd.DeviceID,
		"command", cmd.Command,
		"source", cmd.Source,
	)

	switch cmd.Command {
	case CommandSetColor:
		b.executeSetColor(cmd)
	case CommandBindAddress:
		b.executeBindAddress(cmd)
	default:
		b.publishAck(topicID, NewAckError(cmd, "", ErrCodeInvalidCommand,
			fmt.Sprintf("Unknown command %q.", cmd.Command)))
	}
	return nil
}

// executeSetColor starts the send and acks from a tracked goroutine so the
// MQTT delivery goroutine is never held for the send timeout.
func (b *Bridge) executeSetColor(cmd CommandMessage) {
	id := device.DeviceID(cmd.DeviceID)

	c, err := colorFromParameters(cmd.Parameters)
	if err != nil {
		b.publishAck(cmd.DeviceID, NewAckError(cmd, "", ErrCodeInvalidParameters,
			fmt.Sprintf("Invalid color for ball %d: %v.", cmd.DeviceID, err)))
		return
	}

	results := b.dispatcher.SendColorCommand(b.ctx, id, c)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		res := <-results
		b.publishAck(cmd.DeviceID, NewResultAck(cmd, res))
	}()
}

func (b *Bridge) executeBindAddress(cmd CommandMessage) {
	address, ok := cmd.Parameters["address"].(string)
	address = strings.TrimSpace(address)
	if !ok {
		b.publishAck(cmd.DeviceID, NewAckError(cmd, "", ErrCodeInvalidParameters,
			"bind_address requires a string address parameter."))
		return
	}

	if err := b.dispatcher.BindAddress(device.DeviceID(cmd.DeviceID), address); err != nil {
		b.publishAck(cmd.DeviceID, NewAckError(cmd, address, ErrCodeInvalidParameters,
			fmt.Sprintf("Could not bind ball %d: %v.", cmd.DeviceID, err)))
		return
	}

	msg := fmt.Sprintf("Ball %d bound to %s.", cmd.DeviceID, address)
	if address == "" {
		msg = fmt.Sprintf("Ball %d unbound.", cmd.DeviceID)
	}
	b.publishAck(cmd.DeviceID, NewAckMessage(cmd, address, msg))
}

func (b *Bridge) publishAck(id int, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.getLogger().Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.BallAck(id), payload, commandQoS, false); err != nil {
		b.getLogger().Warn("failed to publish ack", "ball", id, "command_id", ack.CommandID, "error", err)
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}
