package blockassembly

import (
	"context"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/util/kafka"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TemplateNotification is the message published for every built template.
type TemplateNotification struct {
	TemplateID        string `json:"templateid"`
	PreviousBlockHash string `json:"previousblockhash"`
	Height            uint32 `json:"height"`
	CurTime           int64  `json:"curtime"`
	CoinbaseValue     uint64 `json:"coinbasevalue"`
	Transactions      int    `json:"transactions"`
	Certificates      int    `json:"certificates"`
	Fingerprint       uint64 `json:"fingerprint"`
}

// KafkaNotifier publishes template notifications keyed by the parent block hash.
type KafkaNotifier struct {
	producer kafka.KafkaProducerI
}

func NewKafkaNotifier(producer kafka.KafkaProducerI) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) NotifyTemplate(_ context.Context, template *model.BlockTemplate) error {
	data, err := json.Marshal(&TemplateNotification{
		TemplateID:        template.ID,
		PreviousBlockHash: template.PreviousHash.String(),
		Height:            template.Height,
		CurTime:           template.BuildTime.Unix(),
		CoinbaseValue:     template.CoinbaseValue,
		Transactions:      len(template.Transactions),
		Certificates:      len(template.Certificates),
		Fingerprint:       template.Fingerprint,
	})
	if err != nil {
		return errors.NewProcessingError("failed to encode template notification", err)
	}

	return n.producer.Send(template.PreviousHash.CloneBytes(), data)
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
