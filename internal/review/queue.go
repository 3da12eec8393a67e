package review

import (
	"context"
	"fmt"
	"time"

	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

// DefaultQueueLimit caps how many items one session takes on.
const DefaultQueueLimit = 20

// LoadQueue selects the items for a new session: everything due at or
// before now, due ascending with ID as tiebreak, optionally narrowed to
// one context. The snapshot is fixed; items becoming due while the
// session runs wait for the next one.
func LoadQueue(ctx context.Context, store storage.QuestionStore, now time.Time, limit int, contextID string) ([]*types.Question, error) {
	if limit < 1 {
		limit = DefaultQueueLimit
	}
	queue, err := store.GetDue(ctx, now, limit, contextID)
	if err != nil {
		return nil, fmt.Errorf("loading review queue: %w", err)
	}
	return queue, nil
}
