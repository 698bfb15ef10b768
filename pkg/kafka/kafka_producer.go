package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

// Kafka 生产者服务，交易事件对外广播用
// 定义接口，方便测试和替换
type ProducerService interface {
	Produce(ctx context.Context, key, value []byte) error
	Close()
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer 创建面向单一topic的生产者
func NewKafkaProducer(brokerURL, topic string) ProducerService {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{}, // 保证写入负载均衡
	}
	return &kafkaProducer{writer: writer}
}

// Produce 写入一条消息
// key使用symbol，保证同一交易对的事件进入同一个partition（有序性）
func (p *kafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *kafkaProducer) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("Error closing kafka writer: %v", err)
	}
}
