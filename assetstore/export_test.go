package assetstore

// SetBeforeAddColumn installs a hook run before each column is added by
// Synchronize.
func SetBeforeAddColumn(s *Store, fn func(name string) error) {
	s.beforeAddColumn = fn
}

// IsBusyError exposes busy error detection to tests.
var IsBusyError = isBusyError
