package telattr

import (
	"github.com/NilFoundation/ibft/common/logging"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MetricOption = metric.MeasurementOption

func With(attrs ...attribute.KeyValue) MetricOption {
	return metric.WithAttributeSet(attribute.NewSet(attrs...))
}

func P2PIdentity(id peer.ID) attribute.KeyValue {
	return attribute.Stringer(logging.FieldP2PIdentity, id)
}

func PeerId(id peer.ID) attribute.KeyValue {
	return attribute.Stringer(logging.FieldPeerId, id)
}

func Topic(topic string) attribute.KeyValue {
	return attribute.String(logging.FieldTopic, topic)
}

func Type(t string) attribute.KeyValue {
	return attribute.String(logging.FieldType, t)
}

func Round(round uint32) attribute.KeyValue {
	return attribute.Int64(logging.FieldRound, int64(round))
}

func Height(height uint64) attribute.KeyValue {
	return attribute.Int64(logging.FieldHeight, int64(height))
}
