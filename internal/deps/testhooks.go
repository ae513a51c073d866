package deps

// SetStatfsForTests overrides the filesystem stat function during tests.
func SetStatfsForTests(fn func(path string) (total, free uint64, err error)) func() {
	previous := statfs
	statfs = fn
	return func() {
		statfs = previous
	}
}
