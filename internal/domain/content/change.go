package content

import "context"

// Content type names used in search documents, jobs, and metrics labels.
const (
	TypeProduct = "product"
	TypeBlog    = "blog"
	TypeEvent   = "event"
	TypePage    = "page"
	TypeTeam    = "team"
	TypeSlider  = "slider"
)

// Change describes a committed mutation of a content entity.
type Change struct {
	Type    string
	ID      string
	Deleted bool
}

// Notifier receives content changes after they are committed. Notify must
// not block on slow work; implementations enqueue jobs or invalidate caches.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

type NotifierFunc func(ctx context.Context, change Change)

func (f NotifierFunc) Notify(ctx context.Context, change Change) { f(ctx, change) }

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, change Change) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, change)
		}
	}
}

var NopNotifier Notifier = NotifierFunc(func(context.Context, Change) {})
