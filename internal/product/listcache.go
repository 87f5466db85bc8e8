package product

import (
	"context"
	"fmt"

	"github.com/minishop/commerce-services/internal/pkg/cache"
)

// InvalidateListCache retires every cached product list. Bumping the
// generation first means a list read that started before a stock change
// can never publish its rows under a key later readers will use.
func InvalidateListCache(ctx context.Context, c cache.Cache) error {
	if _, err := c.Incr(ctx, ListGenerationKey); err != nil {
		return err
	}
	if err := c.DeletePattern(ctx, ListCachePattern); err != nil {
		return fmt.Errorf("purge retired lists: %w", err)
	}
	return nil
}
