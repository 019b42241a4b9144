// Package cli provides the interactive docvault command-line client.
//
// It wires configuration and the application core into a REPL. A session
// decided at startup (or a login) unlocks the document and chat commands:
//
//   - Login / Logout / Whoami
//   - Upload, List, Open, Info, Remove documents
//   - Ask questions about the active document, show or clear its History
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// and then flushes pending state to disk.
package cli
