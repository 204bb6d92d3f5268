package notify

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
)

// Fanout delivers every notice to all of its notifiers. A failing notifier does not
// stop delivery to the others.
type Fanout struct {
	notifiers []interfaces.Notifier
}

var _ interfaces.Notifier = &Fanout{}

// NewFanout creates a Fanout. nil notifiers are skipped.
func NewFanout(notifiers ...interfaces.Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Len returns the number of notifiers
func (f *Fanout) Len() int {
	return len(f.notifiers)
}

func (f *Fanout) Notify(ctx context.Context, notice *model.Notice) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return goerr.Wrap(errors.Join(errs...), "failed to deliver notice",
			goerr.V("failed", len(errs)),
			goerr.V("total", len(f.notifiers)),
		)
	}
	return nil
}
