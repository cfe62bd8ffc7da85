package doctor

import (
	"context"
	"fmt"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// StoreCheck verifies the message store is reachable and readable. It relies
// on the deadline RunAll puts on ctx.
type StoreCheck struct {
	store  chat.Store
	driver string
}

// NewStoreCheck creates a new store connectivity check.
func NewStoreCheck(store chat.Store, driver string) *StoreCheck {
	return &StoreCheck{store: store, driver: driver}
}

func (c *StoreCheck) Name() string {
	return "Message Store"
}

func (c *StoreCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.store.Ping(ctx); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Store reachable",
			Status: StatusFail,
			Detail: fmt.Sprintf("%s: %v", c.driver, err),
		})
		return result
	}
	result.Items = append(result.Items, CheckItem{
		Label:  "Store reachable",
		Status: StatusPass,
		Detail: c.driver,
	})

	convs, err := c.store.Conversations(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "List conversations",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	unread := 0
	for _, conv := range convs {
		unread += conv.UnreadCount
	}
	result.Items = append(result.Items, CheckItem{
		Label:  "List conversations",
		Status: StatusPass,
		Detail: fmt.Sprintf("%d conversation(s), %d unread message(s)", len(convs), unread),
	})

	return result
}
