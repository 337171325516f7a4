package utils

// UniqueStrings returns the entries of slice without duplicates, keeping the first occurrence order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	unique := make([]string, 0, len(slice))
	for _, entry := range slice {
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		unique = append(unique, entry)
	}
	return unique
}
