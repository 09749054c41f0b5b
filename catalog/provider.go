package catalog

import (
	"context"
	"fmt"
)

// MultiProvider concatenates the descriptors of several providers in order.
// A failing member fails the whole call so a partial catalog is never
// published.
type MultiProvider []DescriptorProvider

func (m MultiProvider) Descriptors(ctx context.Context) ([]EndpointDescriptor, error) {
	var out []EndpointDescriptor
	for i, p := range m {
		if p == nil {
			continue
		}
		descs, err := p.Descriptors(ctx)
		if err != nil {
			return nil, fmt.Errorf("provider %d: %w", i, err)
		}
		out = append(out, descs...)
	}
	return out, nil
}
