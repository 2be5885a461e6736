package internal

// Version is the current version of the together backend.
// This should be updated with each release.
const Version = "0.4.0"
