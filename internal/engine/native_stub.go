//go:build !whisper_native

package engine

import "fmt"

// LoadNative is unavailable in this build: whisperd was compiled without
// the whisper_native tag, so there is no whisper.cpp binding linked in.
// It exists so callers can select a [Loader] without a build-tag switch
// of their own; see [DefaultLoader].
func LoadNative(modelPath string, opts Options) (Engine, error) {
	return nil, fmt.Errorf("engine: built without whisper_native tag, no native engine available")
}
