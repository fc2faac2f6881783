package wsproject

// DerivePushStatus computes a segment's push status from its commits,
// top-to-bottom (tip first), per the following rules, in order:
//
//  1. No remote-tracking ref at all: CompletelyUnpushed.
//  2. No commits, or the first commit is Integrated: Integrated.
//  3. Any commit is LocalAndRemote with a mismatched OID, or the
//     first commit is LocalOnly and some later commit is Integrated:
//     UnpushedCommitsRequiringForce.
//  4. The first commit is LocalOnly: UnpushedCommits, or
//     UnpushedCommitsRequiringForce if the remote has commits we
//     don't have mapped locally.
//  5. Otherwise: NothingToPush.
//
// This is a pure function of its three inputs: recomputing it on the
// same inputs always yields the same result.
func DerivePushStatus(hasRemoteTrackingRef bool, commits []Commit, remoteHasCommits bool) PushStatus {
	if !hasRemoteTrackingRef {
		return CompletelyUnpushed
	}

	if len(commits) == 0 || commits[0].Relation.Kind == Integrated {
		return PushIntegrated
	}

	firstIsLocal := commits[0].Relation.Kind == LocalOnly

	for i, c := range commits {
		if c.Relation.Kind == LocalAndRemote && c.Relation.Matched != c.Hash {
			return UnpushedCommitsRequiringForce
		}
		if firstIsLocal && i > 0 && c.Relation.Kind == Integrated {
			return UnpushedCommitsRequiringForce
		}
	}

	if firstIsLocal {
		if remoteHasCommits {
			return UnpushedCommitsRequiringForce
		}
		return UnpushedCommits
	}

	return NothingToPush
}
