package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/config"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

func TestApplicationGraphs(t *testing.T) {
	tests := []struct {
		name  string
		extra fx.Option
	}{
		{"message-consumer", MessageConsumer()},
		{"image-processor", ImageProcessor()},
		{"metadata-enricher", MetadataEnricher()},
		{"event-publisher", fx.Invoke(func(rabbit.MessagePublisher) {})},
	}

	for _, tt := range tests {
		for _, deadLetters := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/dead_letters=%t", tt.name, deadLetters), func(t *testing.T) {
				cfg, err := config.Load(tt.name)
				require.NoError(t, err)
				cfg.DeadLetterStore = deadLetters

				assert.NoError(t, fx.ValidateApp(Options(cfg, tt.extra)))
			})
		}
	}
}
