package sync

import (
	"context"
	"fmt"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
)

// commitClosure computes the transitive set of commits reachable from the
// starting identity over the bipartite record-commit graph: a commit is
// related if one of its member entries shares a record with an already
// related commit.
//
// Explicit worklist with visited sets for both node kinds. Both sets only
// grow and the graph is finite, so the fixed point terminates. Commit ids
// are returned in discovery order for deterministic cleanup.
func commitClosure(ctx context.Context, log *oplog.Log, start record.Identity) ([]string, error) {
	seenCommits := make(map[string]bool)
	seenIdentities := map[record.Identity]bool{start: true}

	var commits []string
	work := []record.Identity{start}

	for len(work) > 0 {
		identity := work[0]
		work = work[1:]

		ids, err := log.CommitIDsFor(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("commit closure: %w", err)
		}
		for _, commitID := range ids {
			if seenCommits[commitID] {
				continue
			}
			seenCommits[commitID] = true
			commits = append(commits, commitID)

			members, err := log.IdentitiesForCommit(ctx, commitID)
			if err != nil {
				return nil, fmt.Errorf("commit closure: %w", err)
			}
			for _, member := range members {
				if seenIdentities[member] {
					continue
				}
				seenIdentities[member] = true
				work = append(work, member)
			}
		}
	}

	return commits, nil
}
