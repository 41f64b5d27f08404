package mqtt

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/radio.go/pkg/link"
)

// StatusTopic is the retained topic of a station's status.
func StatusTopic(id string) string {
	return id + "/status"
}

// StatusPublisher implements link.StatusNotifier by publishing retained
// status snapshots, cleared by the broker when the station goes away.
type StatusPublisher struct {
	Queue *Queue
	ID    string
}

// NewStatusPublisher creates a StatusPublisher.
func NewStatusPublisher(brokerURL, id string) (*StatusPublisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+StatusTopic(id), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("radio:" + id)
	}
	return &StatusPublisher{Queue: NewQueue(opts, topicPrefix), ID: id}, nil
}

// Name implements framework.Named.
func (p *StatusPublisher) Name() string {
	return "status/" + p.ID
}

// Run implements framework.Runnable.
func (p *StatusPublisher) Run(ctx context.Context) error {
	if err := p.Queue.Connect(); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	<-ctx.Done()
	p.Queue.PubWith(StatusTopic(p.ID), nil, 1, true).Wait()
	p.Queue.Close()
	return ctx.Err()
}

// StatusChanged implements link.StatusNotifier.
func (p *StatusPublisher) StatusChanged(_ context.Context, s link.Status) {
	data, err := EncodeStatus(s)
	if err != nil {
		glog.Errorf("encode status: %v", err)
		return
	}
	// not waiting: the station goroutine must not block on the broker
	p.Queue.PubWith(StatusTopic(p.ID), data, 1, true)
}

type statsField struct {
	name string
	val  *int
}

func statsFields(s *link.Stats) []statsField {
	return []statsField{
		{"frames_sent", &s.FramesSent},
		{"frames_received", &s.FramesReceived},
		{"pages_received", &s.PagesReceived},
		{"streams_sent", &s.StreamsSent},
		{"streams_received", &s.StreamsReceived},
		{"streams_dropped", &s.StreamsDropped},
		{"resends", &s.Resends},
		{"checksum_errors", &s.ChecksumErrors},
		{"missed", &s.Missed},
		{"rejected", &s.Rejected},
		{"overflows", &s.Overflows},
		{"bytes_dropped", &s.BytesDropped},
		{"oversized", &s.Oversized},
	}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

// EncodeStatus encodes a Status as a protobuf Struct.
func EncodeStatus(s link.Status) ([]byte, error) {
	stats := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	for _, f := range statsFields(&s.Stats) {
		stats.Fields[f.name] = numberValue(float64(*f.val))
	}
	msg := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"role":       {Kind: &structpb.Value_StringValue{StringValue: s.Role.String()}},
			"channel":    numberValue(float64(s.Settings.Channel)),
			"poll_time":  numberValue(float64(s.Settings.PollTime)),
			"peer_alive": {Kind: &structpb.Value_BoolValue{BoolValue: s.PeerAlive}},
			"stats":      {Kind: &structpb.Value_StructValue{StructValue: stats}},
		},
	}
	return proto.Marshal(msg)
}

// DecodeStatus decodes what EncodeStatus produced.
func DecodeStatus(data []byte) (link.Status, error) {
	var s link.Status
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return s, err
	}
	role, err := link.ParseRole(msg.Fields["role"].GetStringValue())
	if err != nil {
		return s, err
	}
	s.Role = role
	s.Settings.Channel = uint32(msg.Fields["channel"].GetNumberValue())
	s.Settings.PollTime = uint32(msg.Fields["poll_time"].GetNumberValue())
	s.PeerAlive = msg.Fields["peer_alive"].GetBoolValue()
	if stats := msg.Fields["stats"].GetStructValue(); stats != nil {
		for _, f := range statsFields(&s.Stats) {
			*f.val = int(stats.Fields[f.name].GetNumberValue())
		}
	}
	return s, nil
}

// WatchStatus subscribes status of all stations under the prefix.
func WatchStatus(q *Queue, fn func(id string, s link.Status)) *Subscription {
	return q.Sub(StatusTopic("+"), func(topic string, payload []byte) {
		id := topic[:len(topic)-len("/status")]
		if len(payload) == 0 {
			return
		}
		s, err := DecodeStatus(payload)
		if err != nil {
			glog.Warningf("status of %s: %v", id, err)
			return
		}
		fn(id, s)
	})
}
