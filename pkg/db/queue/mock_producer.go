package queue

import (
	"github.com/IBM/sarama"
)

// recordingProducer is an in-memory sarama.SyncProducer that captures
// every published report so tests can inspect keys and payloads. The
// transactional half of the interface is stubbed; nothing here produces
// transactionally.
type recordingProducer struct {
	sent []*sarama.ProducerMessage
}

var _ sarama.SyncProducer = (*recordingProducer)(nil)

func (p *recordingProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	p.sent = append(p.sent, msg)
	return 0, int64(len(p.sent) - 1), nil
}

func (p *recordingProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *recordingProducer) Close() error {
	return nil
}

func (p *recordingProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return 0
}

func (p *recordingProducer) IsTransactional() bool {
	return false
}

func (p *recordingProducer) BeginTxn() error {
	return nil
}

func (p *recordingProducer) CommitTxn() error {
	return nil
}

func (p *recordingProducer) AbortTxn() error {
	return nil
}

func (p *recordingProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (p *recordingProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}
