package expression

// Upsert returns a copy of list with any entry equal to text removed and
// text appended at the end.
func Upsert(list []string, text string) []string {
	out := Remove(list, text)
	return append(out, text)
}

// Remove returns a copy of list without entries equal to text.
func Remove(list []string, text string) []string {
	out := make([]string, 0, len(list)+1)
	for _, e := range list {
		if e != text {
			out = append(out, e)
		}
	}
	return out
}

// Replace returns a copy of list where the entry equal to old is replaced in
// place by text. Other entries equal to text are dropped so the list stays
// duplicate-free. The boolean is false when old is not in the list, in
// which case the copy is unchanged.
func Replace(list []string, old, text string) ([]string, bool) {
	idx := indexOf(list, old)
	if idx < 0 {
		return append([]string(nil), list...), false
	}

	out := make([]string, 0, len(list))
	for i, e := range list {
		switch {
		case i == idx:
			out = append(out, text)
		case e == text:
		default:
			out = append(out, e)
		}
	}
	return out, true
}

// FindByAlias returns the first entry of list whose alias is alias.
func FindByAlias(list []string, alias string) (string, bool) {
	for _, e := range list {
		if Alias(e) == alias {
			return e, true
		}
	}
	return "", false
}

// ReplaceByAlias replaces the entry whose alias is alias with text.
func ReplaceByAlias(list []string, alias, text string) ([]string, bool) {
	old, ok := FindByAlias(list, alias)
	if !ok {
		return append([]string(nil), list...), false
	}
	return Replace(list, old, text)
}

// Normalize drops repeated entries, keeping the first occurrence.
func Normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, e := range list {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func indexOf(list []string, text string) int {
	for i, e := range list {
		if e == text {
			return i
		}
	}
	return -1
}
