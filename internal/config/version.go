package config

// Version is the lineage binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/lineage/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
