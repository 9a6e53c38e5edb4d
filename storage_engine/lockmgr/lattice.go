package lockmgr

/*
compatible reports whether a new request of mode `want` can be granted
given the queue's current group mode `have`, per the standard
multi-granularity compatibility matrix:

	    IS IX  S SIX  X
	IS   √  √  √  √   .
	IX   √  √  .  .   .
	 S   √  .  √  .   .
	SIX  √  .  .  .   .
	 X   .  .  .  .   .
*/
func compatible(have GroupMode, want LockMode) bool {
	if have == NonLock {
		return true
	}
	switch want {
	case IS:
		return have != GroupX
	case IX:
		return have == GroupIS || have == GroupIX
	case S:
		return have == GroupIS || have == GroupS
	case SIX:
		return have == GroupIS
	case X:
		return false
	default:
		return false
	}
}

// ge reports whether mode `have` is at least as strong as `want` in the
// lattice X ≥ SIX ≥ {S, IX} ≥ IS (S and IX are incomparable with each
// other). A transaction holding `have` never needs to additionally
// acquire `want`.
func ge(have, want LockMode) bool {
	if have == want {
		return true
	}
	switch want {
	case IS:
		return true // every mode implies IS
	case IX:
		return have == SIX || have == X
	case S:
		return have == SIX || have == X
	case SIX:
		return have == X
	case X:
		return false
	default:
		return false
	}
}

// join computes the lattice join of a group mode with one more granted
// mode — the new group_mode after adding `m` to a queue whose members
// already summarize to `have`.
func join(have GroupMode, m LockMode) GroupMode {
	if have == NonLock {
		return modeToGroup(m)
	}
	switch m {
	case IS:
		return have // IS never strengthens an existing group
	case IX:
		switch have {
		case GroupIS, GroupIX:
			return GroupIX
		case GroupS, GroupSIX:
			return GroupSIX
		default:
			return GroupX
		}
	case S:
		switch have {
		case GroupIS, GroupS:
			return GroupS
		case GroupIX, GroupSIX:
			return GroupSIX
		default:
			return GroupX
		}
	case SIX:
		if have == GroupX {
			return GroupX
		}
		return GroupSIX
	case X:
		return GroupX
	default:
		return have
	}
}

// recomputeGroup walks every granted request in the queue and rebuilds its
// group mode from scratch, used after a release (where simply "un-joining"
// one mode is not well-defined — the lattice join has no unique inverse).
func recomputeGroup(q *LockQueue) {
	g := NonLock
	for _, r := range q.Requests {
		if r.Granted {
			g = join(g, r.Mode)
		}
	}
	q.GroupMode = g
}
