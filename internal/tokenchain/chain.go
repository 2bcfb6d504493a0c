package tokenchain

import (
	"context"
	"time"

	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

// Find returns a pointer into the user's collection, or nil.
func Find(u *models.User, digest string) *models.RefreshToken {
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].Token == digest {
			return &u.RefreshTokens[i]
		}
	}
	return nil
}

func Revoke(t *models.RefreshToken, now time.Time, ip, reason string, replacedBy *string) {
	at := now
	t.RevokedAt = &at
	t.RevokedByIP = &ip
	t.ReasonRevoked = &reason
	t.ReplacedBy = replacedBy
}

// PruneStale drops tokens that are no longer active and were created at or
// before now-retention. Active tokens are always kept.
func PruneStale(u *models.User, now time.Time, retention time.Duration) int {
	cutoff := now.Add(-retention)
	kept := make([]models.RefreshToken, 0, len(u.RefreshTokens))
	for _, t := range u.RefreshTokens {
		if !t.IsActive(now) && !t.CreatedAt.After(cutoff) {
			continue
		}
		kept = append(kept, t)
	}
	removed := len(u.RefreshTokens) - len(kept)
	u.RefreshTokens = kept
	return removed
}

// RevokeDescendants follows ReplacedBy from start and revokes the first active
// successor it meets. Broken links, cycles and overlong chains end the walk and
// are logged; they never fail the caller.
func RevokeDescendants(ctx context.Context, start *models.RefreshToken, u *models.User, now time.Time, ip, reason string) int {
	l := logging.FromContext(ctx).With("svc", "tokenchain", "user_id", u.ID.String())

	visited := map[string]struct{}{start.Token: {}}
	cur := start
	for steps := 0; steps < len(u.RefreshTokens); steps++ {
		if cur.ReplacedBy == nil || *cur.ReplacedBy == "" {
			return 0
		}

		next := Find(u, *cur.ReplacedBy)
		if next == nil {
			l.Warn("token_chain_anomaly", "reason", "successor missing", "token_id", cur.ID)
			return 0
		}
		if _, seen := visited[next.Token]; seen {
			l.Warn("token_chain_anomaly", "reason", "cycle", "token_id", next.ID)
			return 0
		}
		visited[next.Token] = struct{}{}

		if next.IsActive(now) {
			Revoke(next, now, ip, reason, nil)
			return 1
		}
		cur = next
	}

	l.Warn("token_chain_anomaly", "reason", "step limit reached", "steps", len(u.RefreshTokens))
	return 0
}
