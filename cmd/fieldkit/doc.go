// Package main is the fieldkit CLI.
//
// Every command is a thin Cobra wrapper over a daemon RPC: submitting
// complaints, attaching and capturing media, triggering sync passes, and
// inspecting the queue and logs. The shared commandContext resolves the
// config file and socket path once so individual commands only format input
// and output.
//
// Behavior belongs in the internal packages; a command that grows logic of
// its own should push it down and call it over IPC instead.
package main
