package membership

import (
	"context"

	"go.uber.org/zap"
)

// The multi-table writes behind a membership move are independent
// statements, not one transaction. The saga makes the failure policy
// explicit per step: a critical step aborts the operation and compensates
// the steps already committed; a best-effort step is logged and skipped,
// accepted as temporary mirror staleness that is never rolled back or
// retried.

type stepFunc func(ctx context.Context) error

type step struct {
	name       string
	critical   bool
	run        stepFunc
	compensate stepFunc
}

type saga struct {
	steps []step
}

func (s *saga) critical(name string, run stepFunc) {
	s.steps = append(s.steps, step{name: name, critical: true, run: run})
}

func (s *saga) bestEffort(name string, run, compensate stepFunc) {
	s.steps = append(s.steps, step{name: name, run: run, compensate: compensate})
}

func (s *saga) execute(ctx context.Context, logger *zap.Logger) error {
	var done []step
	for _, st := range s.steps {
		if err := st.run(ctx); err != nil {
			if !st.critical {
				logger.Warn("membership step failed, continuing",
					zap.String("step", st.name), zap.Error(err))
				continue
			}
			for i := len(done) - 1; i >= 0; i-- {
				prev := done[i]
				if prev.compensate == nil {
					continue
				}
				if cerr := prev.compensate(ctx); cerr != nil {
					logger.Warn("membership compensation failed",
						zap.String("step", prev.name), zap.Error(cerr))
				}
			}
			return err
		}
		done = append(done, st)
	}
	return nil
}
