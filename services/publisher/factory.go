package publisher

import (
	"context"
	"io"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
)

// NewFromConfig builds the configured sinks. In dry-run mode nothing leaves
// the process: messages are rendered to out instead.
func NewFromConfig(ctx context.Context, cfg *config.Config, out io.Writer) (Publisher, error) {
	if cfg.DryRun {
		logger.ForPublisher(PublisherNameDryRun).Info().Strs("skipped", cfg.Publishers).Msg("Dry run, rendering messages locally")
		return NewDryRunPublisher(out), nil
	}

	var publishers []Publisher
	closeAll := func() {
		for _, p := range publishers {
			p.Close()
		}
	}

	for _, name := range cfg.Publishers {
		switch name {
		case config.PublisherTelegram:
			p, err := NewTelegramPublisher(cfg.TelegramToken, cfg.ChatID)
			if err != nil {
				closeAll()
				return nil, err
			}
			publishers = append(publishers, p)

		case config.PublisherRedis:
			p := NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
			if err := p.Ping(ctx); err != nil {
				p.Close()
				closeAll()
				return nil, err
			}
			publishers = append(publishers, p)

		case config.PublisherKafka:
			p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
			if err != nil {
				closeAll()
				return nil, err
			}
			publishers = append(publishers, p)

		default:
			closeAll()
			return nil, errors.NewConfiguration("unknown publisher "+name, nil)
		}
		logger.ForPublisher(name).Info().Msg("Publisher ready")
	}

	if len(publishers) == 1 {
		return publishers[0], nil
	}
	return NewMultiPublisher(publishers...), nil
}
