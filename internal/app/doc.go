// Package app contains the core application logic. It defines the
// Bootstrapper state machine that brings the image uploader or viewer up,
// the App that hosts it for a process, and the App's configuration,
// decoupled from any specific entrypoint like a CLI.
package app
