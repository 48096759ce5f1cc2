package coverage

import "slices"

// CompareSignatures orders signatures element by element; when one is a
// prefix of the other the shorter sorts first.
func CompareSignatures(a, b Signature) int {
	return slices.Compare(a, b)
}

// LRLM returns the coverages whose signature is minimal under
// CompareSignatures: the first segment is as short as possible, ties broken
// by the second segment and so on. Every coverage sharing that signature is
// returned, in their original relative order.
//
// covs must not be empty; callers report uncovered lines before selecting.
func LRLM(covs []Coverage) []Coverage {
	if len(covs) == 0 {
		panic("coverage: LRLM of an empty coverage set")
	}

	type keyed struct {
		cov Coverage
		sig Signature
	}
	ks := make([]keyed, len(covs))
	for i, c := range covs {
		ks[i] = keyed{cov: c, sig: c.Signature()}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return CompareSignatures(a.sig, b.sig)
	})

	var out []Coverage
	for _, k := range ks {
		if CompareSignatures(k.sig, ks[0].sig) != 0 {
			break
		}
		out = append(out, k.cov)
	}
	return out
}
