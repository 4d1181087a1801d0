package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/monmat/order-manager/internal/repository"
)

// periodPrefix renders the YYMM period key a custom id is scoped to.
func periodPrefix(t time.Time) string {
	return t.Format("0601")
}

// nextCustomID derives the next custom id in the period of the given
// timestamp by consulting the store for the last one issued. The read and
// the subsequent insert are not atomic; the unique constraint on custom_id
// plus the retry loop in CreateOrder make the sequence safe under
// concurrent writers.
func (s *Service) nextCustomID(ctx context.Context, t time.Time) (string, error) {
	prefix := periodPrefix(t)

	last, err := s.repo.LastInPeriod(ctx, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return fmt.Sprintf("%s/00001", prefix), nil
		}
		return "", fmt.Errorf("find last order in period %s: %w", prefix, err)
	}

	parts := strings.Split(last.CustomID, "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed custom id %q in period %s", last.CustomID, prefix)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed custom id %q in period %s", last.CustomID, prefix)
	}

	return fmt.Sprintf("%s/%05d", prefix, n+1), nil
}
