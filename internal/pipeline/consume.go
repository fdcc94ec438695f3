package pipeline

import (
	"context"
	"io"
	"strings"

	"github.com/pkarlsson/wordrel/pkg/kafka"
	"github.com/pkarlsson/wordrel/pkg/logger"
)

// UnitMessage is one annotation unit delivered over Kafka: the unit id and
// the raw annotation text in the same format as an annotation file.
type UnitMessage struct {
	UnitID     string `json:"unit_id"`
	Annotation string `json:"annotation"`
}

// HandleUnitMessage returns a Kafka MessageHandler that feeds each received
// unit through the fused pipeline. Units are processed in arrival order on
// the consumer goroutine, preserving the sequential id-assignment contract.
func HandleUnitMessage(p *Pipeline) kafka.MessageHandler {
	log := logger.WithComponent("unit-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		msg, err := kafka.DecodeJSON[UnitMessage](value)
		if err != nil {
			log.Error("failed to decode unit message", "error", err, "key", string(key))
			return nil
		}
		unit := Unit{
			ID: msg.UnitID,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(msg.Annotation)), nil
			},
		}
		return p.RunUnit(ctx, unit)
	}
}
