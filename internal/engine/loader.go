package engine

// DefaultLoader returns the Loader whisperd starts its domains with: the
// real whisper.cpp binding when built with the whisper_native tag, or one
// that always fails otherwise. cmd/whisperd uses this instead of
// switching on the build tag itself.
func DefaultLoader() Loader {
	return LoadNative
}
