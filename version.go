package atsim

// Version is the semantic version of the module. It is overridden at build
// time with -ldflags "-X github.com/aretw0/atsim.Version=...".
var Version = "v0.1.0-dev"
