package sema

import "cursive0/internal/diag"

// closeCapabilities computes each procedure's transitive capability
// requirement as a fixed point over the call graph (repeat "union callee
// requirements into caller" until no set grows), then re-checks every
// recorded call site: the caller's in-scope capability bindings — its own
// capability parameters — must be a superset of the callee's closed
// requirement.
func (c *checker) closeCapabilities() {
	sigsByKey := make(map[string]*ProcSig, len(c.typed.Sigs))
	for _, sig := range c.typed.Sigs {
		sigsByKey[sig.PathKey] = sig
	}

	changed := true
	for changed {
		changed = false
		for caller, callees := range c.callEdges {
			callerSig := sigsByKey[caller]
			if callerSig == nil {
				continue
			}
			for callee := range callees {
				calleeSig := sigsByKey[callee]
				if calleeSig == nil {
					continue
				}
				for cap := range calleeSig.Caps {
					if !callerSig.Caps[cap] {
						callerSig.Caps[cap] = true
						changed = true
					}
				}
			}
		}
	}

	// Call-site check against the closure. A procedure's in-scope
	// bindings are exactly its own capability parameters, so the check
	// is Req(callee) ⊆ Caps(caller)'s declared parameter set.
	declared := make(map[string]map[string]bool, len(sigsByKey))
	for key, sig := range sigsByKey {
		set := make(map[string]bool)
		for _, p := range sig.Params {
			if p.Capability != "" {
				set[p.Capability] = true
			}
		}
		declared[key] = set
	}
	for _, site := range c.capSites {
		calleeSig := sigsByKey[site.callee]
		if calleeSig == nil {
			continue
		}
		have := declared[site.caller]
		for cap := range calleeSig.Caps {
			if !have[cap] {
				c.errorf(diag.ErrCapabilityMissing, site.span, "%q", cap)
			}
		}
	}
}
