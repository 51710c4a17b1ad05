package build

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/storacha/hitcounter/pkg/build.Version=...".
var Version = "v0.0.0"
