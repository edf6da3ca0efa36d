package urlutil

import "strings"

// DomainFallbackChain returns host and each of its parent domains, most
// specific first, down to (and including) its eTLD+1 — the lookup order
// the Source Recipe Store uses for subdomain fallback (§4.4).
func DomainFallbackChain(rawURLOrHost string) []string {
	host := hostOf(rawURLOrHost)
	if host == "" {
		return nil
	}
	root := EffectiveTLDPlusOne(host)

	var chain []string
	cur := host
	for {
		chain = append(chain, cur)
		if cur == root {
			break
		}
		idx := strings.Index(cur, ".")
		if idx < 0 {
			break
		}
		cur = cur[idx+1:]
		if len(cur) < len(root) {
			// shouldn't happen, but guard against infinite loop on odd input
			chain = append(chain, root)
			break
		}
	}
	return chain
}
