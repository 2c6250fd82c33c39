package searchindex

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate/entities/models"
)

// chunkClass describes the chunk class. Id properties use field tokenization so
// equality filters match whole ids rather than word tokens.
func chunkClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "Bookmarked document chunks",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: propContent, DataType: []string{"text"}},
			{Name: propTitle, DataType: []string{"text"}},
			{Name: propURL, DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: propOwnerID, DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: propSourceID, DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: propIndex, DataType: []string{"int"}},
		},
	}
}

// Bootstrap ensures the chunk class exists, adding any missing properties to an existing class.
func (w *Weaviate) Bootstrap(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	desired := chunkClass(w.className)
	ex, err := w.client.Schema().ClassGetter().WithClassName(desired.Class).Do(cctx)
	if err != nil || ex == nil {
		if err := w.client.Schema().ClassCreator().WithClass(desired).Do(cctx); err != nil {
			return fmt.Errorf("create class %s: %w", desired.Class, err)
		}
		w.log.Info().Str("class", desired.Class).Msg("weaviate class created")
		return nil
	}

	have := make(map[string]bool, len(ex.Properties))
	for _, p := range ex.Properties {
		have[p.Name] = true
	}
	for _, p := range desired.Properties {
		if have[p.Name] {
			continue
		}
		if err := w.client.Schema().PropertyCreator().WithClassName(desired.Class).WithProperty(p).Do(cctx); err != nil {
			return fmt.Errorf("add property %s.%s: %w", desired.Class, p.Name, err)
		}
	}
	return nil
}
