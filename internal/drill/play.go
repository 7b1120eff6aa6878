package drill

import (
	"context"
)

// Presenter renders rounds and collects answers.
type Presenter interface {
	Show(p Prompt)
	// ReadAnswer blocks until a line is available or ctx is done.
	ReadAnswer(ctx context.Context) (string, error)
	Feedback(fb Feedback)
	Clear()
}

// Play runs rounds until ctx is cancelled or the presenter fails to read.
// The read error is returned unchanged, including io.EOF.
func Play(ctx context.Context, s *Session, pr Presenter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := s.Next()
		pr.Show(p)

		raw, err := pr.ReadAnswer(ctx)
		if err != nil {
			return err
		}

		fb, err := s.Answer(ctx, raw)
		if err != nil {
			return err
		}

		pr.Clear()
		pr.Feedback(fb)
	}
}
