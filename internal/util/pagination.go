package util

// Calculate turns 1-based page/size query values into an offset and limit.
// Out-of-range sizes fall back to a 50-item page, capped at 100.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 50
	}
	from = (page - 1) * size
	return from, size
}
